package dummy

import (
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/rabbitmq"
)

var _ rabbitmq.Publisher = &Publisher{}

func NewDummyPublisher() *Publisher {
	return &Publisher{}
}

// Publisher records published messages instead of sending them anywhere.
type Publisher struct {
	Unavailable bool

	mutex    sync.Mutex
	Messages []amqp091.Publishing
}

func (p *Publisher) Publish(msg amqp091.Publishing) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.Unavailable {
		return NetworkFailure
	}

	p.Messages = append(p.Messages, msg)
	return nil
}
