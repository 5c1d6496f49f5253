package kafka

import (
	stderrors "errors"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

var _ sarama.SCRAMClient = (*scramConversation)(nil)

var errConversationNotStarted = stderrors.New("scram conversation not started")

// scramHashes maps the SASL mechanism names accepted in kafka.sasl_mechanism
// to their hash functions.
var scramHashes = map[string]scram.HashGeneratorFcn{
	sarama.SASLTypeSCRAMSHA256: scram.SHA256,
	sarama.SASLTypeSCRAMSHA512: scram.SHA512,
}

// scramConversation authenticates the result publisher's broker connections.
// sarama creates one per connection through scramClientGenerator.
type scramConversation struct {
	hash scram.HashGeneratorFcn
	conv *scram.ClientConversation
}

func (c *scramConversation) Begin(userName, password, authzID string) error {
	client, err := c.hash.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	c.conv = client.NewConversation()
	return nil
}

func (c *scramConversation) Step(challenge string) (string, error) {
	if c.conv == nil {
		return "", errConversationNotStarted
	}
	return c.conv.Step(challenge)
}

func (c *scramConversation) Done() bool {
	return c.conv != nil && c.conv.Done()
}

// scramClientGenerator returns the sarama client factory for a SCRAM
// mechanism name, or nil if the name is not a SCRAM mechanism.
func scramClientGenerator(mechanism string) func() sarama.SCRAMClient {
	hash, ok := scramHashes[mechanism]
	if !ok {
		return nil
	}
	return func() sarama.SCRAMClient {
		return &scramConversation{hash: hash}
	}
}
