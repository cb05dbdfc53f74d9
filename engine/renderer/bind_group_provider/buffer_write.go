package bind_group_provider

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// BufferWrite is a pending upload into the buffer a provider holds at Binding, starting Offset bytes in.
// The renderer refreshes the panorama uniforms with one write per frame.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Apply queues the write. Empty data is a no-op.
//
// Parameters:
//   - q: the device queue the write is submitted to
//
// Returns:
//   - error: error if the provider holds no buffer at the binding or the queue rejects the write
func (w BufferWrite) Apply(q *wgpu.Queue) error {
	if len(w.Data) == 0 {
		return nil
	}
	if w.Provider == nil {
		return fmt.Errorf("buffer write to binding %d has no provider", w.Binding)
	}
	buf := w.Provider.Buffer(w.Binding)
	if buf == nil {
		return fmt.Errorf("%s: no buffer at binding %d", w.Provider.Label(), w.Binding)
	}
	if q == nil {
		return fmt.Errorf("%s: no queue for binding %d", w.Provider.Label(), w.Binding)
	}
	return q.WriteBuffer(buf, w.Offset, w.Data)
}
