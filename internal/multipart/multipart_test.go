package multipart

import (
	"bytes"
	"mime"
	gomultipart "mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRoundTripsFieldsAndFiles(t *testing.T) {
	body, contentType, err := Encode(
		map[string]string{"bla": "foo"},
		[]File{{FieldName: "test", FileName: "a.txt", Content: []byte("simple file")}},
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(contentType, "multipart/form-data; boundary="))

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)

	reader := gomultipart.NewReader(bytes.NewReader(body), params["boundary"])
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)

	assert.Equal(t, []string{"foo"}, form.Value["bla"])
	require.Len(t, form.File["test"], 1)
	assert.Equal(t, "a.txt", form.File["test"][0].Filename)
}
