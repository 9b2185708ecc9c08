package wsocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Enqueue_DropsOldestWhenFull(t *testing.T) {
	c := &Client{send: make(chan []byte, 2)}

	c.enqueue([]byte("1"))
	c.enqueue([]byte("2"))
	c.enqueue([]byte("3")) // buffer full at "1","2" — should drop "1"

	require.Len(t, c.send, 2)
	first := <-c.send
	second := <-c.send
	assert.Equal(t, []byte("2"), first)
	assert.Equal(t, []byte("3"), second)
}

func TestClient_Enqueue_FitsWithinCapacity(t *testing.T) {
	c := &Client{send: make(chan []byte, 3)}
	c.enqueue([]byte("a"))
	c.enqueue([]byte("b"))
	require.Len(t, c.send, 2)
}
