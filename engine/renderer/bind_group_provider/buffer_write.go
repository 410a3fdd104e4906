package bind_group_provider

// BufferWrite is one queued upload into the buffer at Binding of Provider, starting at Offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
