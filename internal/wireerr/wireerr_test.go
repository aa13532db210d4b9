package wireerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutErrorMatchesSentinelEvenWhenWrapped(t *testing.T) {
	cause := errors.New("i/o timeout")
	err := Timeout("read", cause)

	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, cause))
}

func TestConnectionErrorMatchesSentinel(t *testing.T) {
	err := Connection("dial", nil)
	assert.True(t, errors.Is(err, ErrConnection))
}

func TestHTTPErrorCarriesStatus(t *testing.T) {
	err := &HTTPError{StatusCode: 404, Status: "404 Not Found"}
	assert.Equal(t, 404, err.StatusCode)
	assert.Contains(t, err.Error(), "404")
}
