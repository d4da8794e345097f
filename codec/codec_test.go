package codec

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"pyenv/log"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	s := State{
		Loaded: []string{"editors.vim", "lang.python3", "devel.ncurses"},
		Dependents: map[string][]string{
			"devel.ncurses": {"editors.vim"},
			"lang.python3":  {"editors.vim"},
		},
	}

	encoded := Encode(s)
	decoded, err := Decode(encoded)
	require.NoError(t, err)

	require.ElementsMatch(t, s.Loaded, decoded.Loaded)
	require.Len(t, decoded.Dependents, len(s.Dependents))
	for k, v := range s.Dependents {
		require.ElementsMatch(t, v, decoded.Dependents[k])
	}
}

func TestEncode_Deterministic(t *testing.T) {
	s := State{
		Loaded:     []string{"c.mod", "a.mod", "b.mod"},
		Dependents: map[string][]string{"a.mod": {"z", "y"}, "b.mod": {"x"}},
	}
	a := Encode(s)
	b := Encode(s)
	require.Equal(t, a, b)
}

func TestEncodeDecode_Empty(t *testing.T) {
	encoded := Encode(State{})
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.True(t, decoded.Empty())
}

func TestChunkUnchunk_RoundTrip(t *testing.T) {
	s := State{Loaded: []string{"editors.vim", "lang.python3"}}
	data := Encode(s)

	chunks := Chunk(data, 8)
	require.True(t, len(chunks) > 1)

	raw, err := Unchunk(chunks)
	require.NoError(t, err)
	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.ElementsMatch(t, s.Loaded, decoded.Loaded)
}

func TestReadState_NoPriorData(t *testing.T) {
	get := func(name string) (string, bool) { return "", false }
	state, cleanup := ReadState(get, log.NoOpLogger{})
	require.True(t, state.Empty())
	require.Equal(t, 0, cleanup)
}

func TestReadState_RoundTripThroughEnv(t *testing.T) {
	s := State{Loaded: []string{"editors.vim"}, Dependents: map[string][]string{}}
	chunks := WriteState(s, 6)

	env := make(map[string]string)
	for i, c := range chunks {
		env[EnvDataPrefix+strconv.Itoa(i)] = c
	}
	get := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	state, cleanup := ReadState(get, log.NoOpLogger{})
	require.Equal(t, len(chunks), cleanup)
	require.ElementsMatch(t, s.Loaded, state.Loaded)
}

func TestReadState_CorruptDataIsNonFatal(t *testing.T) {
	env := map[string]string{
		EnvDataPrefix + "0": "not valid base64!!!",
	}
	get := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	state, cleanup := ReadState(get, log.NoOpLogger{})
	require.True(t, state.Empty())
	require.Equal(t, 0, cleanup)
}

func TestReadState_StopsAtFirstGap(t *testing.T) {
	chunks := WriteState(State{Loaded: []string{"editors.vim"}}, DefaultChunkSize)
	require.Len(t, chunks, 1)
	env := map[string]string{
		EnvDataPrefix + "0": chunks[0],
		EnvDataPrefix + "2": "should not be read",
	}
	get := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	// Slot 2 lies past the gap at slot 1; reading it too would make the
	// concatenation invalid base64 and discard the state.
	state, cleanup := ReadState(get, log.NoOpLogger{})
	require.Equal(t, 1, cleanup)
	require.ElementsMatch(t, []string{"editors.vim"}, state.Loaded)
}
