package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvFallback(t *testing.T) {
	t.Setenv("SCORERACK_TEST_STR", "set")
	assert.Equal(t, "set", getEnv("SCORERACK_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", getEnv("SCORERACK_TEST_STR_MISSING", "fallback"))
}

func TestGetEnvIntFallback(t *testing.T) {
	t.Setenv("SCORERACK_TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("SCORERACK_TEST_INT", 7))

	// 非数字值退回默认
	t.Setenv("SCORERACK_TEST_INT_BAD", "forty-two")
	assert.Equal(t, 7, getEnvInt("SCORERACK_TEST_INT_BAD", 7))
	assert.Equal(t, 7, getEnvInt("SCORERACK_TEST_INT_MISSING", 7))
}

func TestGetEnvBoolFallback(t *testing.T) {
	t.Setenv("SCORERACK_TEST_BOOL", "true")
	assert.True(t, getEnvBool("SCORERACK_TEST_BOOL", false))

	t.Setenv("SCORERACK_TEST_BOOL_BAD", "yep")
	assert.False(t, getEnvBool("SCORERACK_TEST_BOOL_BAD", false))
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.NotEmpty(t, cfg.HTTPAddr)
	assert.NotEmpty(t, cfg.DBName)
	assert.NotEmpty(t, cfg.MinioBucket)
	assert.Greater(t, cfg.JWTTTLHours, 0)
}
