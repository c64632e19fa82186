package config

import (
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mattn/go-shellwords"
)

var commandType = reflect.TypeOf(Command{})

// stringToCommandHookFunc splits a command written as one string.
func stringToCommandHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != commandType {
			return data, nil
		}
		raw := reflect.ValueOf(data).String()
		if raw == "" {
			return Command{}, nil
		}
		args, err := shellwords.Parse(raw)
		if err != nil {
			return nil, err
		}
		return Command(args), nil
	}
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToCommandHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
