package kafkaadmin

import (
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
)

func TestAddConfig(t *testing.T) {
	rc := ResourceConfigs{}

	// Various error conditions.

	err := rc.AddConfig("", "config-key", "config-value")
	assert.Equal(t, err.Error(), "all parameters must be non-empty")

	err = rc.AddConfig("test-entry", "", "config-value")
	assert.Equal(t, err.Error(), "all parameters must be non-empty")

	err = rc.AddConfig("test-entry", "config-key", "")
	assert.Equal(t, err.Error(), "all parameters must be non-empty")

	// Check that the entry was added.

	err = rc.AddConfig("test-entry", "config-key", "config-value")
	assert.Nil(t, err)

	assert.Equal(t, "config-value", rc["test-entry"]["config-key"], "unexpected value")
}

func TestAddConfigEntry(t *testing.T) {
	rc := ResourceConfigs{}

	ce := kafka.ConfigEntryResult{
		Name:  "config-key",
		Value: "config-value",
	}

	err := rc.AddConfigEntry("test-entry", ce)
	assert.Nil(t, err)

	assert.Equal(t, "config-value", rc["test-entry"]["config-key"], "unexpected value")
}

func TestResourceConfigsFromResults(t *testing.T) {
	crs := []kafka.ConfigResourceResult{
		{
			Type: kafka.ResourceTopic,
			Name: "test1",
			Config: map[string]kafka.ConfigEntryResult{
				"retention.ms":   {Name: "retention.ms", Value: "172800000", Source: kafka.ConfigSourceDynamicTopic},
				"cleanup.policy": {Name: "cleanup.policy", Value: "delete", Source: kafka.ConfigSourceDefault},
			},
		},
		{
			Type:   kafka.ResourceTopic,
			Name:   "test2",
			Config: map[string]kafka.ConfigEntryResult{},
		},
	}

	all, err := ResourceConfigsFromResults(crs, false)
	assert.Nil(t, err)
	assert.Equal(t, ResourceConfigs{
		"test1": {"retention.ms": "172800000", "cleanup.policy": "delete"},
		"test2": {},
	}, all)

	dynamic, err := ResourceConfigsFromResults(crs, true)
	assert.Nil(t, err)
	assert.Equal(t, ResourceConfigs{
		"test1": {"retention.ms": "172800000"},
		"test2": {},
	}, dynamic)

	// Resource level errors are returned.
	crs[1].Error = kafka.NewError(kafka.ErrUnknownTopicOrPart, "unknown", false)
	_, err = ResourceConfigsFromResults(crs, false)
	assert.NotNil(t, err)
}

func TestResourceType(t *testing.T) {
	rt, err := resourceType("topic")
	assert.Nil(t, err)
	assert.Equal(t, kafka.ResourceTopic, rt)

	rt, err = resourceType("broker")
	assert.Nil(t, err)
	assert.Equal(t, kafka.ResourceBroker, rt)

	_, err = resourceType("group")
	assert.Equal(t, ErrInvalidResourceType, err)
}
