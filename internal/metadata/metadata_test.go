package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Metadata{MessageID: "111", ThreadID: "222", ChannelID: "333"}

	body, err := Encode(in)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(body, StartMarker))
	require.True(t, strings.HasSuffix(body, EndMarker))
	require.Contains(t, body, `"message_id":"111"`)
	require.Contains(t, body, `"thread_id":"222"`)
	require.Contains(t, body, `"channel_id":"333"`)

	got := Decode([]models.Comment{{Body: body}})
	require.NotNil(t, got)
	require.Equal(t, in, *got)
}

func TestDecodeSkipsHumanAndBrokenComments(t *testing.T) {
	good, err := Encode(Metadata{MessageID: "m", ThreadID: "t", ChannelID: "c"})
	require.NoError(t, err)

	comments := []models.Comment{
		{Body: "LGTM"},
		{Body: StartMarker + "\n{not json}\n" + EndMarker},
		{Body: StartMarker + " no end marker"},
		{Body: "some text before\n" + good + "\nand after"},
	}

	got := Decode(comments)
	require.NotNil(t, got)
	require.Equal(t, "m", got.MessageID)
}

func TestDecodeReturnsFirstMatch(t *testing.T) {
	first, _ := Encode(Metadata{MessageID: "first", ChannelID: "c"})
	second, _ := Encode(Metadata{MessageID: "second", ChannelID: "c"})

	got := Decode([]models.Comment{{Body: first}, {Body: second}})
	require.NotNil(t, got)
	require.Equal(t, "first", got.MessageID)
}

func TestDecodeNone(t *testing.T) {
	require.Nil(t, Decode(nil))
	require.Nil(t, Decode([]models.Comment{{Body: "<!-- unrelated -->"}}))
	require.Nil(t, Decode([]models.Comment{{Body: StartMarker + "\n{}\n" + EndMarker}}))
}

func TestIsMetadataComment(t *testing.T) {
	require.True(t, IsMetadataComment(StartMarker+" broken"))
	require.False(t, IsMetadataComment("hello"))
}
