package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/virtfs/pkg/vfs"
)

// ============================================================================
// Request / Response Types
// ============================================================================

// OpenRequest is the body for POST /api/v1/open.
type OpenRequest struct {
	Path string `json:"path"`
	// Flags is the open flag set: read, write, rw, create, trunc, append.
	Flags []string `json:"flags"`
	// Mode is the octal creation mode, e.g. "0644". Empty means defaults
	// minus umask.
	Mode string `json:"mode,omitempty"`
}

// OpenResponse carries the allocated descriptor.
type OpenResponse struct {
	FD int `json:"fd"`
}

// FDRequest addresses an open descriptor.
type FDRequest struct {
	FD int `json:"fd"`
}

// ReadRequest is the body for POST /api/v1/read.
type ReadRequest struct {
	FD  int `json:"fd"`
	Max int `json:"max"`
}

// ReadResponse carries bytes read; Data is base64-encoded by encoding/json.
type ReadResponse struct {
	Data []byte `json:"data"`
	N    int    `json:"n"`
}

// WriteRequest is the body for POST /api/v1/write; Data is base64-encoded.
type WriteRequest struct {
	FD   int    `json:"fd"`
	Data []byte `json:"data"`
}

// WriteResponse carries the byte count written.
type WriteResponse struct {
	N int `json:"n"`
}

// SeekRequest is the body for POST /api/v1/seek. Whence is set, cur or end.
type SeekRequest struct {
	FD     int    `json:"fd"`
	Offset int64  `json:"offset"`
	Whence string `json:"whence"`
}

// SeekResponse carries the resulting cursor position.
type SeekResponse struct {
	Position int64 `json:"position"`
}

// PathRequest addresses a target by path.
type PathRequest struct {
	Path string `json:"path"`
}

// MkdirRequest is the body for POST /api/v1/mkdir.
type MkdirRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// LinkRequest is the body for POST /api/v1/link and /api/v1/symlink.
type LinkRequest struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
}

// ChmodRequest is the body for the chmod family.
type ChmodRequest struct {
	Path string `json:"path,omitempty"`
	FD   int    `json:"fd,omitempty"`
	Mode string `json:"mode"`
}

// ChownRequest is the body for the chown family.
type ChownRequest struct {
	Path string `json:"path,omitempty"`
	FD   int    `json:"fd,omitempty"`
	UID  uint32 `json:"uid"`
	GID  uint32 `json:"gid"`
}

// UmaskRequest is the body for POST /api/v1/umask.
type UmaskRequest struct {
	Mask string `json:"mask"`
}

// UmaskResponse carries the previous umask.
type UmaskResponse struct {
	Previous string `json:"previous"`
}

// StatResponse is the JSON rendering of a vfs.InodeView.
type StatResponse struct {
	Ino      uint64    `json:"ino"`
	Mode     string    `json:"mode"`
	Format   string    `json:"format"`
	Nlink    uint32    `json:"nlink"`
	UID      uint32    `json:"uid"`
	GID      uint32    `json:"gid"`
	Size     int64     `json:"size"`
	Atime    time.Time `json:"atime"`
	Mtime    time.Time `json:"mtime"`
	Ctime    time.Time `json:"ctime"`
	DeviceID string    `json:"device_id"`
}

// ReadlinkResponse carries a symlink target.
type ReadlinkResponse struct {
	Target string `json:"target"`
}

// CwdResponse carries the working directory path.
type CwdResponse struct {
	Path string `json:"path"`
}

// DirEntryResponse is one explicit directory entry.
type DirEntryResponse struct {
	Name   string `json:"name"`
	Ino    uint64 `json:"ino"`
	Format string `json:"format"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ============================================================================
// Byte-Stream Handlers
// ============================================================================

// Open handles POST /api/v1/open.
func (s *Server) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	flags, err := parseFlags(req.Flags)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var fd int
	s.do(w, "open", func() error {
		var err error
		fd, err = s.fs.Open(req.Path, flags, mode)
		return err
	}, func() {
		s.descriptorOpened()
		writeJSON(w, http.StatusOK, OpenResponse{FD: fd})
	})
}

// Read handles POST /api/v1/read.
func (s *Server) Read(w http.ResponseWriter, r *http.Request) {
	var req ReadRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	var data []byte
	s.do(w, "read", func() error {
		var err error
		data, err = s.fs.Read(req.FD, req.Max)
		return err
	}, func() {
		writeJSON(w, http.StatusOK, ReadResponse{Data: data, N: len(data)})
	})
}

// Write handles POST /api/v1/write.
func (s *Server) Write(w http.ResponseWriter, r *http.Request) {
	var req WriteRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	var n int
	s.do(w, "write", func() error {
		var err error
		n, err = s.fs.Write(req.FD, req.Data)
		return err
	}, func() {
		writeJSON(w, http.StatusOK, WriteResponse{N: n})
	})
}

// Seek handles POST /api/v1/seek.
func (s *Server) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	whence, err := parseWhence(req.Whence)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var pos int64
	s.do(w, "seek", func() error {
		var err error
		pos, err = s.fs.Seek(req.FD, req.Offset, whence)
		return err
	}, func() {
		writeJSON(w, http.StatusOK, SeekResponse{Position: pos})
	})
}

// Close handles POST /api/v1/close.
func (s *Server) Close(w http.ResponseWriter, r *http.Request) {
	var req FDRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s.do(w, "close", func() error {
		return s.fs.Close(req.FD)
	}, func() {
		s.descriptorClosed()
		writeJSON(w, http.StatusOK, struct{}{})
	})
}

// ============================================================================
// Metadata Handlers
// ============================================================================

// Stat handles GET /api/v1/stat?path=.
func (s *Server) Stat(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	var view vfs.InodeView
	s.do(w, "stat", func() error {
		var err error
		view, err = s.fs.Stat(path)
		return err
	}, func() {
		writeJSON(w, http.StatusOK, statResponse(view))
	})
}

// Lstat handles GET /api/v1/lstat?path=.
func (s *Server) Lstat(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	var view vfs.InodeView
	s.do(w, "lstat", func() error {
		var err error
		view, err = s.fs.Lstat(path)
		return err
	}, func() {
		writeJSON(w, http.StatusOK, statResponse(view))
	})
}

// Fstat handles GET /api/v1/fstat?fd=.
func (s *Server) Fstat(w http.ResponseWriter, r *http.Request) {
	fd, err := strconv.Atoi(r.URL.Query().Get("fd"))
	if err != nil {
		badRequest(w, "invalid fd")
		return
	}

	var view vfs.InodeView
	s.do(w, "fstat", func() error {
		var err error
		view, err = s.fs.Fstat(fd)
		return err
	}, func() {
		writeJSON(w, http.StatusOK, statResponse(view))
	})
}

// Chmod handles POST /api/v1/chmod.
func (s *Server) Chmod(w http.ResponseWriter, r *http.Request) {
	s.chmodVariant(w, r, "chmod", func(req ChmodRequest, mode uint32) error {
		return s.fs.Chmod(req.Path, mode)
	})
}

// Lchmod handles POST /api/v1/lchmod.
func (s *Server) Lchmod(w http.ResponseWriter, r *http.Request) {
	s.chmodVariant(w, r, "lchmod", func(req ChmodRequest, mode uint32) error {
		return s.fs.Lchmod(req.Path, mode)
	})
}

// Fchmod handles POST /api/v1/fchmod.
func (s *Server) Fchmod(w http.ResponseWriter, r *http.Request) {
	s.chmodVariant(w, r, "fchmod", func(req ChmodRequest, mode uint32) error {
		return s.fs.Fchmod(req.FD, mode)
	})
}

func (s *Server) chmodVariant(w http.ResponseWriter, r *http.Request, op string, apply func(ChmodRequest, uint32) error) {
	var req ChmodRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	s.do(w, op, func() error {
		return apply(req, mode)
	}, func() {
		writeJSON(w, http.StatusOK, struct{}{})
	})
}

// Chown handles POST /api/v1/chown.
func (s *Server) Chown(w http.ResponseWriter, r *http.Request) {
	s.chownVariant(w, r, "chown", func(req ChownRequest) error {
		return s.fs.Chown(req.Path, req.UID, req.GID)
	})
}

// Lchown handles POST /api/v1/lchown.
func (s *Server) Lchown(w http.ResponseWriter, r *http.Request) {
	s.chownVariant(w, r, "lchown", func(req ChownRequest) error {
		return s.fs.Lchown(req.Path, req.UID, req.GID)
	})
}

// Fchown handles POST /api/v1/fchown.
func (s *Server) Fchown(w http.ResponseWriter, r *http.Request) {
	s.chownVariant(w, r, "fchown", func(req ChownRequest) error {
		return s.fs.Fchown(req.FD, req.UID, req.GID)
	})
}

func (s *Server) chownVariant(w http.ResponseWriter, r *http.Request, op string, apply func(ChownRequest) error) {
	var req ChownRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s.do(w, op, func() error {
		return apply(req)
	}, func() {
		writeJSON(w, http.StatusOK, struct{}{})
	})
}

// Umask handles POST /api/v1/umask.
func (s *Server) Umask(w http.ResponseWriter, r *http.Request) {
	var req UmaskRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	mask, err := parseMode(req.Mask)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var prev uint32
	s.do(w, "umask", func() error {
		prev = s.fs.Umask(mask)
		return nil
	}, func() {
		writeJSON(w, http.StatusOK, UmaskResponse{Previous: formatMode(prev)})
	})
}

// ============================================================================
// Namespace Handlers
// ============================================================================

// Mkdir handles POST /api/v1/mkdir.
func (s *Server) Mkdir(w http.ResponseWriter, r *http.Request) {
	var req MkdirRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	s.do(w, "mkdir", func() error {
		return s.fs.Mkdir(req.Path, mode)
	}, func() {
		writeJSON(w, http.StatusCreated, struct{}{})
	})
}

// Link handles POST /api/v1/link.
func (s *Server) Link(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s.do(w, "link", func() error {
		return s.fs.Link(req.Src, req.Dest)
	}, func() {
		writeJSON(w, http.StatusCreated, struct{}{})
	})
}

// Symlink handles POST /api/v1/symlink.
func (s *Server) Symlink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s.do(w, "symlink", func() error {
		return s.fs.Symlink(req.Src, req.Dest)
	}, func() {
		writeJSON(w, http.StatusCreated, struct{}{})
	})
}

// Readlink handles GET /api/v1/readlink?path=.
func (s *Server) Readlink(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	var target string
	s.do(w, "readlink", func() error {
		var err error
		target, err = s.fs.Readlink(path)
		return err
	}, func() {
		writeJSON(w, http.StatusOK, ReadlinkResponse{Target: target})
	})
}

// Unlink handles POST /api/v1/unlink.
func (s *Server) Unlink(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s.do(w, "unlink", func() error {
		return s.fs.Unlink(req.Path)
	}, func() {
		writeJSON(w, http.StatusOK, struct{}{})
	})
}

// Rmdir handles POST /api/v1/rmdir.
func (s *Server) Rmdir(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s.do(w, "rmdir", func() error {
		return s.fs.Rmdir(req.Path)
	}, func() {
		writeJSON(w, http.StatusOK, struct{}{})
	})
}

// Chdir handles POST /api/v1/chdir.
func (s *Server) Chdir(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s.do(w, "chdir", func() error {
		return s.fs.Chdir(req.Path)
	}, func() {
		writeJSON(w, http.StatusOK, struct{}{})
	})
}

// Fchdir handles POST /api/v1/fchdir.
func (s *Server) Fchdir(w http.ResponseWriter, r *http.Request) {
	var req FDRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s.do(w, "fchdir", func() error {
		return s.fs.Fchdir(req.FD)
	}, func() {
		writeJSON(w, http.StatusOK, struct{}{})
	})
}

// Cwd handles GET /api/v1/cwd.
func (s *Server) Cwd(w http.ResponseWriter, r *http.Request) {
	var path string
	s.do(w, "getcwd", func() error {
		var err error
		path, err = s.fs.Getcwd()
		return err
	}, func() {
		writeJSON(w, http.StatusOK, CwdResponse{Path: path})
	})
}

// ReadDir handles GET /api/v1/readdir?path=.
func (s *Server) ReadDir(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	var entries []vfs.DirEntry
	s.do(w, "readdir", func() error {
		var err error
		entries, err = s.fs.ReadDir(path)
		return err
	}, func() {
		out := make([]DirEntryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, DirEntryResponse{
				Name:   e.Name,
				Ino:    e.Ino,
				Format: formatName(e.Format),
			})
		}
		writeJSON(w, http.StatusOK, out)
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================================
// Helpers
// ============================================================================

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true on success; on failure the error response is already written.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

// writeFsError maps an engine error onto an HTTP status plus the uniform
// error body carrying the code name.
func writeFsError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := ""

	if fe, ok := err.(*vfs.FsError); ok {
		code = fe.Code.String()
		switch fe.Code {
		case vfs.ErrNotFound:
			status = http.StatusNotFound
		case vfs.ErrExists, vfs.ErrNotEmpty, vfs.ErrBusy:
			status = http.StatusConflict
		case vfs.ErrNotDirectory, vfs.ErrIsDirectory, vfs.ErrCrossDevice,
			vfs.ErrInvalidArgument, vfs.ErrBadFileDescriptor, vfs.ErrTooManyLinks:
			status = http.StatusBadRequest
		}
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func statResponse(view vfs.InodeView) StatResponse {
	return StatResponse{
		Ino:      view.Ino,
		Mode:     formatMode(view.Mode),
		Format:   formatName(vfs.FormatOf(view.Mode)),
		Nlink:    view.Nlink,
		UID:      view.UID,
		GID:      view.GID,
		Size:     view.Size,
		Atime:    view.Atime,
		Mtime:    view.Mtime,
		Ctime:    view.Ctime,
		DeviceID: view.DeviceID.String(),
	}
}

// parseMode parses an octal mode string like "0644". Empty means zero
// (defaults minus umask apply).
func parseMode(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, &vfs.FsError{Code: vfs.ErrInvalidArgument, Message: "invalid octal mode " + s}
	}
	return uint32(mode), nil
}

func formatMode(mode uint32) string {
	return "0" + strconv.FormatUint(uint64(mode&^vfs.FormatMask), 8)
}

func formatName(format uint32) string {
	switch format {
	case vfs.FormatRegular:
		return "regular"
	case vfs.FormatDirectory:
		return "directory"
	case vfs.FormatSymlink:
		return "symlink"
	case vfs.FormatFIFO:
		return "fifo"
	case vfs.FormatCharDevice:
		return "chardev"
	case vfs.FormatBlockDevice:
		return "blockdev"
	case vfs.FormatSocket:
		return "socket"
	default:
		return "unknown"
	}
}

func parseFlags(flags []string) (vfs.OpenFlag, error) {
	var out vfs.OpenFlag
	access := false
	for _, f := range flags {
		switch f {
		case "read":
			out |= vfs.ReadOnly
			access = true
		case "write":
			out |= vfs.WriteOnly
			access = true
		case "rw":
			out |= vfs.ReadWrite
			access = true
		case "create":
			out |= vfs.Create
		case "trunc":
			out |= vfs.Truncate
		case "append":
			out |= vfs.Append
		default:
			return 0, &vfs.FsError{Code: vfs.ErrInvalidArgument, Message: "unknown open flag " + f}
		}
	}
	if !access {
		// Default access mode is read-only.
		out |= vfs.ReadOnly
	}
	return out, nil
}

func parseWhence(s string) (int, error) {
	switch s {
	case "", "set":
		return 0, nil
	case "cur":
		return 1, nil
	case "end":
		return 2, nil
	default:
		return 0, &vfs.FsError{Code: vfs.ErrInvalidArgument, Message: "unknown whence " + s}
	}
}
