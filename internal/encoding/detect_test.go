package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/encoding"
)

const header = "Data;Histórico;Valor\n"

func TestUTF8Reader(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		wantCharset string
	}{
		{
			name:        "UTF8",
			input:       []byte(header),
			wantCharset: "UTF-8",
		},
		{
			name:        "UTF8BOM",
			input:       append([]byte{0xEF, 0xBB, 0xBF}, header...),
			wantCharset: "UTF-8",
		},
		{
			name: "UTF16LE",
			input: func() []byte {
				out := []byte{0xFF, 0xFE}
				for _, r := range header {
					out = append(out, byte(r), byte(r>>8))
				}
				return out
			}(),
			wantCharset: "UTF-16LE",
		},
		{
			// "ó" is 0xF3 in Latin-1 and Windows-1252.
			name:  "Latin1",
			input: []byte{'D', 'a', 't', 'a', ';', 'H', 'i', 's', 't', 0xF3, 'r', 'i', 'c', 'o', ';', 'V', 'a', 'l', 'o', 'r', '\n'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, charset, err := encoding.UTF8Reader(bytes.NewReader(tt.input))
			require.NoError(t, err)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, header, string(got))

			if tt.wantCharset != "" {
				assert.Equal(t, tt.wantCharset, charset)
			} else {
				assert.NotEqual(t, "UTF-8", charset)
			}
		})
	}
}

func TestUTF8Reader_Empty(t *testing.T) {
	r, _, err := encoding.UTF8Reader(bytes.NewReader(nil))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}
