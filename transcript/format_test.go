package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00"},
		{3661, "01:01:01"},
		{59.9, "00:00:59"},
		{3599.999, "00:59:59"},
		{86400, "24:00:00"},
		{360000, "100:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimestamp(tt.in), "FormatTimestamp(%v)", tt.in)
	}
}

func TestWithSpeakers(t *testing.T) {
	t.Run("groups consecutive speakers", func(t *testing.T) {
		got := WithSpeakers([]Segment{
			{Start: 0, Speaker: "A", Text: "hello"},
			{Start: 1, Speaker: "A", Text: "world"},
			{Start: 3, Speaker: "B", Text: "hi"},
		})
		assert.Equal(t, "[00:00:00] A: hello world\n\n[00:00:03] B: hi", got)
	})

	t.Run("empty leading segment does not seed the block", func(t *testing.T) {
		got := WithSpeakers([]Segment{
			{Start: 0, Speaker: "A", Text: ""},
			{Start: 1, Speaker: "A", Text: "ok"},
		})
		assert.Equal(t, "[00:00:01] A: ok", got)
	})

	t.Run("blank segment between same speaker keeps the block open", func(t *testing.T) {
		got := WithSpeakers([]Segment{
			{Start: 2, Speaker: "A", Text: " one "},
			{Start: 4, Speaker: "B", Text: "   "},
			{Start: 5, Speaker: "A", Text: "two"},
		})
		assert.Equal(t, "[00:00:02] A: one two", got)
	})

	t.Run("missing speaker is UNKNOWN", func(t *testing.T) {
		got := WithSpeakers([]Segment{
			{Start: 0, Speaker: "SPEAKER_00", Text: "a"},
			{Start: 7, Text: "b"},
			{Start: 9, Text: "c"},
		})
		assert.Equal(t, "[00:00:00] SPEAKER_00: a\n\n[00:00:07] UNKNOWN: b c", got)
	})

	t.Run("speaker returning later opens a new block", func(t *testing.T) {
		got := WithSpeakers([]Segment{
			{Start: 0, Speaker: "A", Text: "x"},
			{Start: 1, Speaker: "B", Text: "y"},
			{Start: 62, Speaker: "A", Text: "z"},
		})
		assert.Equal(t, "[00:00:00] A: x\n\n[00:00:01] B: y\n\n[00:01:02] A: z", got)
	})

	t.Run("empty input yields sentinel", func(t *testing.T) {
		assert.Equal(t, NoResults, WithSpeakers(nil))
		assert.Equal(t, NoResults, WithSpeakers([]Segment{}))
	})

	t.Run("all blank segments yield empty text", func(t *testing.T) {
		assert.Equal(t, "", WithSpeakers([]Segment{{Text: " "}, {Text: ""}}))
	})
}

func TestSimple(t *testing.T) {
	got := Simple([]Segment{
		{Start: 0, Text: "same"},
		{Start: 1.5, Text: "same"},
		{Start: 2, Text: "  "},
		{Start: 3725, Text: " later "},
	})
	assert.Equal(t, "[00:00:00] same\n\n[00:00:01] same\n\n[01:02:05] later", got)

	assert.Equal(t, NoResults, Simple(nil))
}
