package node

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/kaguyact/majsoul-api/core/domain/entity"
	"github.com/kaguyact/majsoul-api/core/infrastructure/message/transfer"
	"github.com/stretchr/testify/require"
)

type sent struct {
	subject string
	data    []byte
}

type fakeClient struct {
	mu      sync.Mutex
	sent    []sent
	sendErr error
	closed  bool
}

func (f *fakeClient) Run(string) error { return nil }

func (f *fakeClient) SendMessage(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sent{subject: subject, data: data})
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestPublisherSendsEvents(t *testing.T) {
	cli := &fakeClient{}
	p := newNatsPublisher(cli, "collector-1", "majsoul.")
	require.NoError(t, p.Run("nats://test"))

	result := entity.NewGameResult("game-1", 100, 200)
	result.Rounds = make([]entity.RoundResult, 3)
	require.NoError(t, p.PublishGameResult(917, result))
	require.NoError(t, p.PublishContestMessage(917, &transfer.ContestMessage{UniqueID: 5, Type: 2, UUID: "game-2"}))
	p.Close()

	require.True(t, cli.closed)
	require.Len(t, cli.sent, 2)
	require.Equal(t, "majsoul.game.parsed", cli.sent[0].subject)
	require.Equal(t, "majsoul.contest.system", cli.sent[1].subject)

	var packet transfer.EventPacket
	require.NoError(t, json.Unmarshal(cli.sent[0].data, &packet))
	require.Equal(t, transfer.GameParsed, packet.Route)
	require.Equal(t, "collector-1", packet.Source)
	require.Equal(t, 917, packet.ContestID)

	var summary transfer.GameSummary
	require.NoError(t, json.Unmarshal(packet.Body, &summary))
	require.Equal(t, "game-1", summary.MajsoulID)
	require.Equal(t, 3, summary.Rounds)
	require.EqualValues(t, 100000, summary.StartTime)

	require.ErrorIs(t, p.PublishGameAborted(917, "game-3", "bad"), ErrPublisherClosed)
}

func TestPublisherKeepsRunningAfterSendError(t *testing.T) {
	cli := &fakeClient{sendErr: errors.New("nats down")}
	p := newNatsPublisher(cli, "collector-1", "")
	require.NoError(t, p.Run("nats://test"))
	require.NoError(t, p.PublishGameAborted(1, "game-1", "no data"))
	p.Close()
	require.Empty(t, cli.sent)
	require.Equal(t, "game.aborted", p.subject(transfer.GameAborted))
}

func TestNatsClientNotConnected(t *testing.T) {
	c := NewNatsClient("test")
	require.False(t, c.IsConnected())
	require.ErrorIs(t, c.SendMessage("x", nil), ErrNotConnected)
	require.NoError(t, c.Close())
}
