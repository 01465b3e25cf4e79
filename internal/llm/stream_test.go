package llm

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackingBody counts Close calls and serves reads in fixed-size chunks so
// tests can split the stream at arbitrary byte offsets.
type trackingBody struct {
	reader     io.Reader
	chunkSize  int
	closeCount int
}

func newTrackingBody(data string, chunkSize int) *trackingBody {
	return &trackingBody{reader: strings.NewReader(data), chunkSize: chunkSize}
}

func (b *trackingBody) Read(p []byte) (int, error) {
	if b.chunkSize > 0 && len(p) > b.chunkSize {
		p = p[:b.chunkSize]
	}
	return b.reader.Read(p)
}

func (b *trackingBody) Close() error {
	b.closeCount++
	return nil
}

func drain(t *testing.T, stream *Stream) []string {
	t.Helper()
	var fragments []string
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			return fragments
		}
		require.NoError(t, err)
		fragments = append(fragments, fragment)
	}
}

const sampleBody = "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
	"data: [DONE]\n\n"

func TestStream_Decode(t *testing.T) {
	stream := NewStream(newTrackingBody(sampleBody, 0))
	defer stream.Close()

	assert.Equal(t, []string{"Hel", "lo"}, drain(t, stream))
}

func TestStream_ArbitrarySplits(t *testing.T) {
	// Splitting the body at arbitrary byte offsets must not change the
	// decoded fragment sequence.
	for _, chunkSize := range []int{1, 2, 3, 5, 7, 11, 64} {
		stream := NewStream(newTrackingBody(sampleBody, chunkSize))
		assert.Equal(t, []string{"Hel", "lo"}, drain(t, stream), "chunk size %d", chunkSize)
		stream.Close()
	}
}

func TestStream_SentinelStopsDecoding(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"before\"}}]}\n\n" +
		"data: [DONE]\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n\n"
	stream := NewStream(newTrackingBody(body, 0))
	defer stream.Close()

	assert.Equal(t, []string{"before"}, drain(t, stream))

	// Once terminated, the stream stays terminated.
	_, err := stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStream_MalformedEventsAreDropped(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n" +
		"data: {not json at all\n\n" +
		": keep-alive comment\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"fine\"}}]}\n\n" +
		"data: [DONE]\n\n"
	stream := NewStream(newTrackingBody(body, 0))
	defer stream.Close()

	assert.Equal(t, []string{"ok", "fine"}, drain(t, stream))
}

func TestStream_EmptyDeltasAreSkipped(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n" +
		"data: [DONE]\n\n"
	stream := NewStream(newTrackingBody(body, 0))
	defer stream.Close()

	assert.Equal(t, []string{"x"}, drain(t, stream))
}

func TestStream_EndsWithoutSentinel(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"
	stream := NewStream(newTrackingBody(body, 0))
	defer stream.Close()

	assert.Equal(t, []string{"partial"}, drain(t, stream))
}

func TestStream_CarriageReturns(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"crlf\"}}]}\r\n\r\ndata: [DONE]\r\n\r\n"
	stream := NewStream(newTrackingBody(body, 0))
	defer stream.Close()

	assert.Equal(t, []string{"crlf"}, drain(t, stream))
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	body := newTrackingBody(sampleBody, 0)
	stream := NewStream(body)

	// Close before consuming anything: early cancellation.
	stream.Close()
	stream.Close()
	assert.Equal(t, 1, body.closeCount)
}

func TestStream_CloseAfterNaturalEnd(t *testing.T) {
	body := newTrackingBody(sampleBody, 0)
	stream := NewStream(body)
	drain(t, stream)

	stream.Close()
	stream.Close()
	assert.Equal(t, 1, body.closeCount)
}
