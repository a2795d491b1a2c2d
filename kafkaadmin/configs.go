package kafkaadmin

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// GetConfigs takes a kafka resource type (ie topic, broker) and list of names
// and returns a ResourceConfigs for all configurations discovered for each
// resource by name.
func (c Client) GetConfigs(ctx context.Context, kind string, names []string) (ResourceConfigs, error) {
	return c.getConfigs(ctx, kind, names, false)
}

// GetDynamicConfigs takes a kafka resource type (ie topic, broker) and
// list of names and returns a ResourceConfigs for all dynamic configurations
// discovered for each resource by name.
func (c Client) GetDynamicConfigs(ctx context.Context, kind string, names []string) (ResourceConfigs, error) {
	return c.getConfigs(ctx, kind, names, true)
}

func (c Client) getConfigs(ctx context.Context, kind string, names []string, onlyDynamic bool) (ResourceConfigs, error) {
	ckgType, err := resourceType(kind)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		return nil, ErrNoResourceNames
	}

	to, err := c.requestTimeout(ctx)
	if err != nil {
		return nil, err
	}

	// Populate the ConfigResource request.
	var crs []kafka.ConfigResource
	for _, n := range names {
		crs = append(crs, kafka.ConfigResource{
			Type: ckgType,
			Name: n,
		})
	}

	// Request.
	resourceConfigs, err := c.c.DescribeConfigs(ctx, crs, kafka.SetAdminRequestTimeout(to))
	if err != nil {
		return nil, err
	}

	return ResourceConfigsFromResults(resourceConfigs, onlyDynamic)
}

// ResourceConfigsFromResults populates a ResourceConfigs from DescribeConfigs
// results. If onlyDynamic is set, only dynamically set configs are included.
// The first resource level error found is returned.
func ResourceConfigsFromResults(crs []kafka.ConfigResourceResult, onlyDynamic bool) (ResourceConfigs, error) {
	// Populate the results into the ResourceConfigs.
	var results = make(ResourceConfigs)

	for _, config := range crs {
		if err := kafkaError(config.Error); err != nil {
			return nil, err
		}

		// A resource with no configs of the requested kind is still present in
		// the results.
		if _, ok := results[config.Name]; !ok {
			results[config.Name] = make(map[string]string)
		}

		for _, v := range config.Config {
			switch onlyDynamic {
			// We need to populate only configs that are dynamic.
			case true:
				if v.Source == kafka.ConfigSourceDynamicTopic || v.Source == kafka.ConfigSourceDynamicBroker {
					results.AddConfigEntry(config.Name, v)
				}
			// Otherwise we populate all configs.
			default:
				results.AddConfigEntry(config.Name, v)
			}
		}
	}

	return results, nil
}

func resourceType(kind string) (kafka.ResourceType, error) {
	switch kind {
	case "topic":
		return kafka.ResourceTopic, nil
	case "broker":
		return kafka.ResourceBroker, nil
	default:
		return kafka.ResourceUnknown, ErrInvalidResourceType
	}
}

// ResourceConfigs is a map of resource name to a map of configuration name
// and configuration value
// Example: map["my_topic"]map["retention.ms"] = "4000000"
type ResourceConfigs map[string]map[string]string

// AddConfig takes a resource name and populates the config key to the specified
// value.
func (rc ResourceConfigs) AddConfig(name, key, value string) error {
	if name == "" || key == "" || value == "" {
		return fmt.Errorf("all parameters must be non-empty")
	}

	if _, ok := rc[name]; !ok {
		rc[name] = make(map[string]string)
	}

	rc[name][key] = value

	return nil
}

// AddConfigEntry takes a resource name (ie a broker ID or topic name) and a
// kafka.ConfigEntryResult. It populates the kafka.ConfigEntryResult in the
// ResourceConfigs keyed by the provided resource name.
func (rc ResourceConfigs) AddConfigEntry(name string, config kafka.ConfigEntryResult) error {
	if _, ok := rc[name]; !ok {
		rc[name] = make(map[string]string)
	}

	if config.Name == "" {
		return fmt.Errorf("empty ConfigEntryResult name")
	}

	rc[name][config.Name] = config.Value

	return nil
}
