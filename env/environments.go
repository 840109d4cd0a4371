package env

// WEnvironment can be used to inject a custom block sink that is different from normal io.Writer.
// This is useful when, for example, blocks need to be indexed or uploaded separately.
type WEnvironment interface {
	// WriteBlock is called each time a block is compressed and needs to be written upstream.
	WriteBlock(p []byte) (n int, err error)
	// WriteEndMarker is called once, on Finish, with the empty terminating block.
	WriteEndMarker(p []byte) (n int, err error)
	// Flush is called on Flush and Finish after all pending blocks were written.
	Flush() error
}
