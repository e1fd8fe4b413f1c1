package capability

import (
	"fmt"
	"os"

	"codenerd/internal/evaluator"
	"codenerd/internal/value"
)

// EnvBundle exposes env.get/set/remove/exists as thin os.Getenv/os.Setenv
// wrappers (spec.md §6: env.{get,set,remove,exists}).
func EnvBundle() *Bundle {
	return &Bundle{
		Name: "env",
		Funcs: map[string]evaluator.CapabilityFunc{
			"get":    envGet,
			"set":    envSet,
			"remove": envRemove,
			"exists": envExists,
		},
	}
}

func envRemove(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("env.remove expects 1 argument (name), got %d", len(args))
	}
	if err := os.Unsetenv(args[0].String()); err != nil {
		return value.Nil, fmt.Errorf("env.remove: %w", err)
	}
	return value.Bool(true), nil
}

func envExists(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("env.exists expects 1 argument (name), got %d", len(args))
	}
	_, ok := os.LookupEnv(args[0].String())
	return value.Bool(ok), nil
}

func envGet(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("env.get expects 1 argument (name), got %d", len(args))
	}
	v, ok := os.LookupEnv(args[0].String())
	if !ok {
		return value.Nil, nil
	}
	return value.String(v), nil
}

func envSet(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Nil, fmt.Errorf("env.set expects 2 arguments (name, value), got %d", len(args))
	}
	if err := os.Setenv(args[0].String(), args[1].String()); err != nil {
		return value.Nil, fmt.Errorf("env.set: %w", err)
	}
	return value.Bool(true), nil
}
