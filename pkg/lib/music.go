package lib

import (
	"io"
)

// ListSongs returns the background music library songs sorted by name.
func (c *Client) ListSongs() ([]Song, error) {
	songs, err := c.music.List()
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalSongs(songs), nil
}

// AddSong stores a song in the background music library, overwriting any
// existing song with the same name. The name is reduced to its base and must
// carry an audio extension (.mp3, .wav, .flac, .ogg or .m4a).
//
// Returns [ErrNotValid] if the name is empty or the format is not supported.
func (c *Client) AddSong(name string, r io.Reader) (*Song, error) {
	song, err := c.music.Save(name, r)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalSong(*song)
	return &result, nil
}
