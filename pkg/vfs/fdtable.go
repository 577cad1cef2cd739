package vfs

// Open-file flags. The access mode occupies the low two bits; behavior flags
// follow in disjoint positions.
const (
	// ReadOnly opens for reading only.
	ReadOnly OpenFlag = 0

	// WriteOnly opens for writing only.
	WriteOnly OpenFlag = 1

	// ReadWrite opens for reading and writing.
	ReadWrite OpenFlag = 2

	// accessMask selects the access mode bits.
	accessMask OpenFlag = 3

	// Create creates the target if it does not exist; creation fails with
	// Exists when the name is already bound.
	Create OpenFlag = 0o100

	// Truncate resets existing content to zero length on open.
	Truncate OpenFlag = 0o1000

	// Append positions every write at the end of content.
	Append OpenFlag = 0o2000
)

// OpenFlag is the bit set passed to Open.
type OpenFlag uint32

// Access returns the access-mode bits of the flag set.
func (f OpenFlag) Access() OpenFlag { return f & accessMask }

// Readable reports whether the flags permit reading.
func (f OpenFlag) Readable() bool {
	acc := f.Access()
	return acc == ReadOnly || acc == ReadWrite
}

// Writable reports whether the flags permit writing.
func (f OpenFlag) Writable() bool {
	acc := f.Access()
	return acc == WriteOnly || acc == ReadWrite
}

// openFile is one open-file entry: the inode, the flags it was opened with,
// the backing content handle, and the cursor.
type openFile struct {
	ino     *Inode
	flags   OpenFlag
	content Content
	offset  int64
}

// FDTable maps small integer handles to open-file state. Handles are
// allocated lowest-free-first and become reusable on Free.
type FDTable struct {
	entries []*openFile
}

// NewFDTable creates an empty descriptor table.
func NewFDTable() *FDTable {
	return &FDTable{}
}

// Alloc reserves the lowest unused non-negative handle for entry.
func (t *FDTable) Alloc(entry *openFile) int {
	for fd, e := range t.entries {
		if e == nil {
			t.entries[fd] = entry
			return fd
		}
	}
	t.entries = append(t.entries, entry)
	return len(t.entries) - 1
}

// Lookup returns the entry for fd, or BadFileDescriptor if the handle is not
// open.
func (t *FDTable) Lookup(fd int) (*openFile, error) {
	if fd < 0 || fd >= len(t.entries) || t.entries[fd] == nil {
		return nil, NewBadFileDescriptorError(fd)
	}
	return t.entries[fd], nil
}

// Free removes the entry for fd, making the handle reusable.
func (t *FDTable) Free(fd int) error {
	if _, err := t.Lookup(fd); err != nil {
		return err
	}
	t.entries[fd] = nil
	return nil
}

// Len returns the number of open descriptors.
func (t *FDTable) Len() int {
	n := 0
	for _, e := range t.entries {
		if e != nil {
			n++
		}
	}
	return n
}
