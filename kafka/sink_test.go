package kafka_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	kafkago "github.com/segmentio/kafka-go"
	symcc "github.com/y4ngyy/SymCC-Modified"
	"github.com/y4ngyy/SymCC-Modified/kafka"
)

func TestSink_WriteTestCase(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		var w MessageWriter
		s := kafka.NewSinkWithWriter(&w)
		if err := s.WriteTestCase(&symcc.TestCase{Index: 3, Suffix: "optimistic", Data: []byte("abc")}); err != nil {
			t.Fatal(err)
		} else if err := s.Close(); err != nil {
			t.Fatal(err)
		}

		if len(w.messages) != 1 {
			t.Fatalf("unexpected message count: %d", len(w.messages))
		} else if diff := cmp.Diff(string(w.messages[0].Key), "000003-optimistic"); diff != "" {
			t.Fatal(diff)
		} else if diff := cmp.Diff(w.messages[0].Value, []byte("abc")); diff != "" {
			t.Fatal(diff)
		} else if !w.closed {
			t.Fatal("expected writer to be closed")
		} else if !w.deadline {
			t.Fatal("expected write deadline")
		}
	})

	t.Run("ErrWrite", func(t *testing.T) {
		errMarker := errors.New("marker")
		s := kafka.NewSinkWithWriter(&MessageWriter{err: errMarker})
		if err := s.WriteTestCase(&symcc.TestCase{}); err != errMarker {
			t.Fatalf("unexpected error: %#v", err)
		}
	})
}

func TestNewMessage(t *testing.T) {
	msg := kafka.NewMessage(&symcc.TestCase{Index: 12, Data: []byte{1, 2}})
	if diff := cmp.Diff(string(msg.Key), "000012"); diff != "" {
		t.Fatal(diff)
	}
	headers := make(map[string]string)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if diff := cmp.Diff(headers, map[string]string{"index": "12", "suffix": ""}); diff != "" {
		t.Fatal(diff)
	}
}

// MessageWriter records messages in memory.
type MessageWriter struct {
	messages []kafkago.Message
	closed   bool
	deadline bool
	err      error
}

func (w *MessageWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	_, w.deadline = ctx.Deadline()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *MessageWriter) Close() error {
	w.closed = true
	return nil
}
