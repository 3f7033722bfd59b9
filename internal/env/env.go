// Package env reads typed settings from the environment.
package env

import (
	"os"
	"strconv"
	"time"
)

// OrDefault returns the environment value of key parsed as T. Unset keys and
// values that do not parse as T yield defaultValue.
func OrDefault[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	parsed, ok := parse(value, defaultValue)
	if !ok {
		return defaultValue
	}
	return parsed
}

func parse[T any](value string, like T) (T, bool) {
	var result any
	var err error

	switch any(like).(type) {
	case string:
		result = value
	case int:
		result, err = strconv.Atoi(value)
	case int64:
		result, err = strconv.ParseInt(value, 10, 64)
	case uint:
		var u uint64
		u, err = strconv.ParseUint(value, 10, 0)
		result = uint(u)
	case uint64:
		result, err = strconv.ParseUint(value, 10, 64)
	case float64:
		result, err = strconv.ParseFloat(value, 64)
	case bool:
		result, err = strconv.ParseBool(value)
	case time.Duration:
		result, err = time.ParseDuration(value)
	default:
		return like, false
	}
	if err != nil {
		return like, false
	}

	return result.(T), true
}
