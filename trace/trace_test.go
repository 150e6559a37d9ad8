package trace

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmailbox/dma"
	"vcmailbox/internal/vcsim"
	"vcmailbox/mailbox"
	"vcmailbox/message"
	"vcmailbox/propertytag"
)

func traced(t *testing.T, tr mailbox.Tracer) (*mailbox.Mailbox, *vcsim.Firmware) {
	t.Helper()
	a, err := dma.NewArena(64<<10, 0x0010_0000)
	require.NoError(t, err)
	fw := vcsim.New(a, vcsim.DefaultProfile())
	return mailbox.New(mailbox.NewFIFO(fw), a, mailbox.WithTracer(tr)), fw
}

func sendTemperature(t *testing.T, mb *mailbox.Mailbox) error {
	t.Helper()
	msg, err := message.New(mb.Arena(), propertytag.NewTemperatureGet())
	require.NoError(t, err)
	back, err := mailbox.Send(mb, mailbox.ChannelPropertyTagsArmToVC, msg)
	if err == nil {
		_ = back.Release()
	}
	return err
}

func TestTracerRecordsBothSides(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf)
	mb, _ := traced(t, tr)

	require.NoError(t, sendTemperature(t, mb))

	var events []Event
	r := NewReader(&buf, Filter{})
	for {
		e, err := r.Next()
		if err != nil {
			break
		}
		events = append(events, e)
	}
	require.Len(t, events, 2)

	out, in := events[0], events[1]
	assert.Equal(t, mailbox.Outbound, out.Direction)
	assert.Equal(t, mailbox.Inbound, in.Direction)
	assert.Equal(t, []uint64{1, 2}, []uint64{out.Seq, in.Seq})
	assert.Equal(t, tr.Session(), in.Session)
	assert.Equal(t, out.Bus, in.Bus)
	assert.Equal(t, uint32(32), out.Size())
	assert.Equal(t, uint32(message.Request), out.State())
	assert.Equal(t, uint32(message.ResponseOk), in.State())

	tags := in.Tags()
	require.Len(t, tags, 1)
	assert.Equal(t, propertytag.IDTemperatureGet, tags[0].ID)
	assert.Equal(t, uint32(propertytag.ResponseBit|8), tags[0].State)
	assert.Zero(t, out.Tags()[0].State)
}

func TestReadFileFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mbox.trace")
	tr, err := Create(path)
	require.NoError(t, err)
	mb, fw := traced(t, tr)

	require.NoError(t, sendTemperature(t, mb))
	fw.FailNext()
	assert.ErrorIs(t, sendTemperature(t, mb), mailbox.ErrTransport)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	all, err := ReadFile(path, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	in, err := ReadFile(path, Filter{Direction: mailbox.Inbound})
	require.NoError(t, err)
	assert.Len(t, in, 2)

	failed, err := ReadFile(path, Filter{ErrorOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "response-error")
	assert.Contains(t, failed[0].String(), "error=")

	other := mailbox.ChannelFramebuffer
	none, err := ReadFile(path, Filter{Channel: &other})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEventCodec(t *testing.T) {
	e := Event{Session: "s", Seq: 7, Direction: mailbox.Outbound, Channel: 8, Bus: 0xC0100000, Envelope: []byte{12, 0, 0, 0}}
	raw, err := EncodeEvent(e)
	require.NoError(t, err)
	got, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, e.Envelope, got.Envelope)
	assert.Equal(t, uint32(12), got.Size())
	assert.Empty(t, got.Tags())
}
