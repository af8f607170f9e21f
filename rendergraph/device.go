package rendergraph

import "github.com/kestrel-forge/rhi/rhi"

// GraphDevice is the narrow slice of device functionality Compile and
// Execute need: resource creation, command-buffer allocation, queue
// submission, and timeline-semaphore creation. It is satisfied by
// *device.Device; defining it here (rather than importing package
// device) keeps rendergraph free of a dependency cycle, since
// device.Device in turn drives rendergraph.Graph.Execute.
type GraphDevice interface {
	NewTransientTexture(info TextureInfo) (rhi.Texture, error)
	NewTransientBuffer(info BufferInfo) (rhi.Buffer, error)

	NewCmdBuffer(role rhi.QueueRole) (rhi.CmdBuffer, error)
	Submit(role rhi.QueueRole, cb []rhi.CmdBuffer, waits, signals []rhi.SemaphoreOp) error
	NewTimelineSemaphore(role rhi.QueueRole) (rhi.TimelineSemaphore, error)

	QueueRoles() map[rhi.QueueRole]bool
	FramesInFlight() int
}
