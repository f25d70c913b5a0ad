package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// dotenvPath picks the .env file to layer under the environment. --env-file
// is scanned before the flag set is built because the file supplies the flag
// defaults.
func dotenvPath(lookup func(string) (string, bool), args []string) (path string, explicit bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if v, ok := strings.CutPrefix(name, flagEnvFile+"="); ok {
			return v, true
		}
		if name == flagEnvFile && i+1 < len(args) {
			return args[i+1], true
		}
	}
	if v, ok := lookup(envVarDotenvFile); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	return DefaultDotenvFile, false
}

// environmentLookup returns a lookup where the process environment wins over
// values read from path. A missing default file is not an error.
func environmentLookup(env func(string) (string, bool), path string, explicit bool) (func(string) (string, bool), bool, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return env, false, nil
		}
		return nil, false, fmt.Errorf("read env file %q: %w", path, err)
	}
	return layeredLookup(env, values), true, nil
}

func layeredLookup(env func(string) (string, bool), fallback map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := env(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}
