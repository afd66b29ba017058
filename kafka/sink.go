// Package kafka publishes generated test cases to a Kafka topic so that
// fuzzers on other hosts can pick them up.
package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	symcc "github.com/y4ngyy/SymCC-Modified"
)

// DefaultTimeout bounds the delivery of a single test case.
const DefaultTimeout = 10 * time.Second

// Ensure sink implements interface.
var _ symcc.TestCaseSink = (*Sink)(nil)

// MessageWriter is the subset of *kafka.Writer used by Sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink writes each test case as one message keyed by its name.
type Sink struct {
	// Maximum time to wait for acknowledgement of a test case.
	Timeout time.Duration

	writer MessageWriter
}

// NewSink returns a sink producing to topic on brokers.
func NewSink(brokers []string, topic string) *Sink {
	return NewSinkWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	})
}

// NewSinkWithWriter returns a sink producing through w.
func NewSinkWithWriter(w MessageWriter) *Sink {
	return &Sink{Timeout: DefaultTimeout, writer: w}
}

// WriteTestCase publishes tc and waits for it to be acknowledged.
func (s *Sink) WriteTestCase(tc *symcc.TestCase) error {
	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.writer.WriteMessages(ctx, NewMessage(tc))
}

// Close flushes pending messages and closes the writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

// NewMessage returns the message carrying tc.
func NewMessage(tc *symcc.TestCase) kafka.Message {
	return kafka.Message{
		Key:   []byte(tc.Name()),
		Value: tc.Data,
		Headers: []kafka.Header{
			{Key: "index", Value: []byte(strconv.Itoa(tc.Index))},
			{Key: "suffix", Value: []byte(tc.Suffix)},
		},
	}
}
