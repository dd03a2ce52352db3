package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMongoConfig_ZeroValuesGetDefaults(t *testing.T) {
	cfg := MongoConfig{URI: "mongodb://localhost:27017", Database: "testdb"}.withDefaults()

	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.SelectTimeout)
	assert.Equal(t, uint64(100), cfg.MaxPoolSize)
	assert.Equal(t, uint64(10), cfg.MinPoolSize)
}

func TestMongoConfig_ExplicitValuesKept(t *testing.T) {
	cfg := MongoConfig{
		URI:            "mongodb://localhost:27017",
		Database:       "testdb",
		ConnectTimeout: time.Second,
		SelectTimeout:  2 * time.Second,
		MaxPoolSize:    7,
		MinPoolSize:    1,
	}.withDefaults()

	assert.Equal(t, time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.SelectTimeout)
	assert.Equal(t, uint64(7), cfg.MaxPoolSize)
	assert.Equal(t, uint64(1), cfg.MinPoolSize)
}
