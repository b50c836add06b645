package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSubject(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{Event{SessionID: "s1", Kind: KindIntent}, "gondi.s1.intent"},
		{Event{SessionID: "abc", Kind: KindReset}, "gondi.abc.reset"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Subject(tc.ev))
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{SessionID: "s1", Kind: KindState}))
	assert.NoError(t, p.Close())
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", zap.NewNop())
	assert.Error(t, err)
}
