package kafkaadmin

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/mock"
)

// mockedFactory records the ConfigMap a Client is built with.
type mockedFactory struct {
	mock.Mock
}

func (m *mockedFactory) NewAdminClient(conf *kafka.ConfigMap) (*kafka.AdminClient, error) {
	args := m.Called(conf)
	ac, _ := args.Get(0).(*kafka.AdminClient)
	return ac, args.Error(1)
}
