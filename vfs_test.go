package vfs_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/valeos/vfs"
	"github.com/valeos/vfs/data"
	"github.com/valeos/vfs/fs/devfs"
	"github.com/valeos/vfs/log"
	"github.com/valeos/vfs/sched"
)

// newTestVfs builds a booted VFS with the standard layout on an in-memory
// root partition.
func newTestVfs(t *testing.T) (*vfs.VirtualFileSystem, *sched.Table) {
	t.Helper()

	table := sched.New()
	v, err := vfs.New(
		vfs.WithScheduler(table),
		vfs.WithRootDevice(":memory:"),
		vfs.WithLogLevel(log.Error),
		vfs.WithoutTerminalLog(),
	)
	if err != nil {
		t.Fatalf("failed to create vfs: %v", err)
	}

	if err := v.Init(t.Context()); err != nil {
		t.Fatalf("failed to init vfs: %v", err)
	}

	return v, table
}

type mountRecord struct {
	mountPoint string
	device     string
	fsType     string
}

// parseMounts walks the serialized mount listing the way user space does:
// advance by offset_next from the start of each record, stop at zero.
func parseMounts(t *testing.T, buf []byte) []mountRecord {
	t.Helper()

	var records []mountRecord
	position := 0

	for {
		offsetNext := binary.LittleEndian.Uint64(buf[position:])
		lengthMp := binary.LittleEndian.Uint64(buf[position+8:])
		lengthDev := binary.LittleEndian.Uint64(buf[position+16:])
		lengthType := binary.LittleEndian.Uint64(buf[position+24:])

		pos := position + 32
		mp := string(buf[pos : pos+int(lengthMp)])
		if buf[pos+int(lengthMp)] != 0 {
			t.Fatal("mount_point not NUL-terminated")
		}
		pos += int(lengthMp) + 1

		dev := string(buf[pos : pos+int(lengthDev)])
		if buf[pos+int(lengthDev)] != 0 {
			t.Fatal("device not NUL-terminated")
		}
		pos += int(lengthDev) + 1

		fsType := string(buf[pos : pos+int(lengthType)])
		if buf[pos+int(lengthType)] != 0 {
			t.Fatal("fs_type not NUL-terminated")
		}

		records = append(records, mountRecord{mp, dev, fsType})

		if offsetNext == 0 {
			return records
		}
		position += int(offsetNext)
	}
}

type dirRecord struct {
	name    string
	entType uint64
}

// parseEntries walks the serialized directory listing.
func parseEntries(t *testing.T, buf []byte) []dirRecord {
	t.Helper()

	var records []dirRecord
	position := 0

	for {
		offsetNext := binary.LittleEndian.Uint64(buf[position:])
		entType := binary.LittleEndian.Uint64(buf[position+8:])
		length := binary.LittleEndian.Uint64(buf[position+16:])

		name := string(buf[position+24 : position+24+int(length)])
		if buf[position+24+int(length)] != 0 {
			t.Fatal("name not NUL-terminated")
		}

		records = append(records, dirRecord{name, entType})

		if offsetNext == 0 {
			return records
		}
		position += int(offsetNext)
	}
}

func TestInit_BootMounts(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	buf := make([]byte, 4096)
	total := v.Mounts(ctx, buf)
	if total < 0 {
		t.Fatalf("mounts failed with status %d", total)
	}

	records := parseMounts(t, buf[:total])
	if len(records) != 4 {
		t.Fatalf("expected 4 mounts, got %d", len(records))
	}

	want := []mountRecord{
		{"/", ":memory:", "FAT32"},
		{"/sys/", "none", "sysfs"},
		{"/dev/", "none", "devfs"},
		{"/proc/", "none", "procfs"},
	}

	for i, rec := range records {
		if rec != want[i] {
			t.Errorf("mount %d: expected %+v, got %+v", i, want[i], rec)
		}
	}
}

func TestMounts_BufferSmall(t *testing.T) {
	v, _ := newTestVfs(t)

	buf := make([]byte, 8)
	if status := v.Mounts(t.Context(), buf); status != -int64(data.ErrBufferSmall) {
		t.Errorf("expected -BUFFER_SMALL, got %d", status)
	}
}

func TestOpen_MountRoot(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	fd := v.Open(ctx, "/sys/", 0)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	var info data.StatInfo
	if status := v.Stat(ctx, fd, &info); status != 0 {
		t.Fatalf("stat failed with status %d", status)
	}

	if info.Size != 4096 {
		t.Errorf("expected size 4096, got %d", info.Size)
	}
	if info.Flags != data.StatFlagDirectory {
		t.Errorf("expected DIRECTORY flags, got %#x", info.Flags)
	}
}

func TestOpen_RelativeCreate(t *testing.T) {
	v, table := newTestVfs(t)
	ctx := t.Context()

	if status := v.Mkdir(ctx, "/home"); status != 0 {
		t.Fatalf("mkdir /home failed with status %d", status)
	}
	if status := v.Mkdir(ctx, "/home/user"); status != 0 {
		t.Fatalf("mkdir /home/user failed with status %d", status)
	}

	table.SetWorkingDirectory(data.ParsePath("/home/user"))

	fd := v.Open(ctx, "notes.txt", data.OpenCreate)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	// The file resolved against the working directory and was created.
	checkFd := v.Open(ctx, "/home/user/notes.txt", 0)
	if checkFd < 0 {
		t.Fatalf("created file not found, status %d", checkFd)
	}
	v.Close(ctx, checkFd)
}

func TestOpen_Errors(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	if status := v.Open(ctx, "", 0); status != -int64(data.ErrInvalidFilePath) {
		t.Errorf("empty path: expected -INVALID_FILE_PATH, got %d", status)
	}

	if status := v.Open(ctx, "/missing.txt", 0); status != -int64(data.ErrNotExists) {
		t.Errorf("missing file: expected -NOT_EXISTS, got %d", status)
	}
}

func TestOpenClose_HandleNeutral(t *testing.T) {
	v, table := newTestVfs(t)
	ctx := t.Context()

	before := table.HandleCount()

	fd := v.Open(ctx, "/sys/", 0)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}

	if table.HandleCount() != before+1 {
		t.Error("open did not register a handle")
	}

	v.Close(ctx, fd)

	if table.HandleCount() != before {
		t.Error("close did not release the handle")
	}

	// Closing an unknown descriptor is a silent noop.
	v.Close(ctx, 9999)
}

func TestStatFs_EmptyPath(t *testing.T) {
	v, _ := newTestVfs(t)

	var info data.StatFsInfo
	if status := v.StatFs(t.Context(), "", &info); status != -int64(data.ErrInvalidFilePath) {
		t.Errorf("expected -INVALID_FILE_PATH, got %d", status)
	}
}

func TestStatFs_Root(t *testing.T) {
	v, _ := newTestVfs(t)

	var info data.StatFsInfo
	if status := v.StatFs(t.Context(), "/", &info); status != 0 {
		t.Fatalf("statfs failed with status %d", status)
	}

	if info.TotalSize == 0 {
		t.Error("expected a non-zero partition size")
	}
	if info.FreeSize > info.TotalSize {
		t.Error("free space exceeds partition size")
	}
}

func TestReadWrite_Fd(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	fd := v.Open(ctx, "/file.bin", data.OpenCreate)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	content := []byte("abcd")
	if status := v.Write(ctx, fd, content, 0); status != 4 {
		t.Fatalf("write: expected 4, got %d", status)
	}

	// Reads past the content come back short.
	buf := make([]byte, 10)
	status := v.Read(ctx, fd, buf, 0)
	if status != 4 {
		t.Fatalf("read: expected 4, got %d", status)
	}

	if !bytes.Equal(buf[:4], content) {
		t.Errorf("expected %q, got %q", content, buf[:4])
	}
}

func TestReadWrite_BadDescriptor(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	buf := make([]byte, 4)
	if status := v.Read(ctx, 1234, buf, 0); status != -int64(data.ErrInvalidFileDescriptor) {
		t.Errorf("read: expected -INVALID_FILE_DESCRIPTOR, got %d", status)
	}
	if status := v.Write(ctx, 1234, buf, 0); status != -int64(data.ErrInvalidFileDescriptor) {
		t.Errorf("write: expected -INVALID_FILE_DESCRIPTOR, got %d", status)
	}
}

func TestReadWrite_RootHandle(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	// A handle on the global root has no segments to dispatch on.
	fd := v.Open(ctx, "/", 0)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	buf := make([]byte, 4)
	if status := v.Read(ctx, fd, buf, 0); status != -int64(data.ErrInvalidFilePath) {
		t.Errorf("expected -INVALID_FILE_PATH, got %d", status)
	}
}

func TestWrite_Offset(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	fd := v.Open(ctx, "/sparse.bin", data.OpenCreate)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	// Writing past the end grows the file with a zero gap.
	if status := v.Write(ctx, fd, []byte("xy"), 6); status != 2 {
		t.Fatalf("write: expected 2, got %d", status)
	}

	var info data.StatInfo
	if status := v.Stat(ctx, fd, &info); status != 0 {
		t.Fatalf("stat failed with status %d", status)
	}
	if info.Size != 8 {
		t.Errorf("expected size 8, got %d", info.Size)
	}

	buf := make([]byte, 8)
	if status := v.Read(ctx, fd, buf, 0); status != 8 {
		t.Fatalf("read: expected 8, got %d", status)
	}
	if !bytes.Equal(buf, []byte{0, 0, 0, 0, 0, 0, 'x', 'y'}) {
		t.Errorf("unexpected content: %v", buf)
	}
}

func TestClear(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	fd := v.Open(ctx, "/clear.bin", data.OpenCreate)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	if status := v.Write(ctx, fd, []byte("aaaaaaaa"), 0); status != 8 {
		t.Fatalf("write failed with status %d", status)
	}

	if status := v.Clear(ctx, fd, 4, 2); status != 4 {
		t.Fatalf("clear: expected 4, got %d", status)
	}

	buf := make([]byte, 8)
	if status := v.Read(ctx, fd, buf, 0); status != 8 {
		t.Fatalf("read failed with status %d", status)
	}
	if !bytes.Equal(buf, []byte{'a', 'a', 0, 0, 0, 0, 'a', 'a'}) {
		t.Errorf("unexpected content after clear: %v", buf)
	}
}

func TestTruncate(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	fd := v.Open(ctx, "/trunc.bin", data.OpenCreate)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	if status := v.Write(ctx, fd, []byte("abcdef"), 0); status != 6 {
		t.Fatalf("write failed with status %d", status)
	}

	if status := v.Truncate(ctx, fd, 3); status != 0 {
		t.Fatalf("truncate failed with status %d", status)
	}

	var info data.StatInfo
	v.Stat(ctx, fd, &info)
	if info.Size != 3 {
		t.Errorf("expected size 3 after shrink, got %d", info.Size)
	}

	// Extension zero-fills.
	if status := v.Truncate(ctx, fd, 5); status != 0 {
		t.Fatalf("truncate failed with status %d", status)
	}

	buf := make([]byte, 5)
	if status := v.Read(ctx, fd, buf, 0); status != 5 {
		t.Fatalf("read failed with status %d", status)
	}
	if !bytes.Equal(buf, []byte{'a', 'b', 'c', 0, 0}) {
		t.Errorf("unexpected content after extend: %v", buf)
	}
}

func TestDirectReadWrite(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	fd := v.Open(ctx, "/direct.txt", data.OpenCreate)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	v.Close(ctx, fd)

	if status := v.DirectWrite(ctx, "/direct.txt", []byte("hello"), 0); status != 5 {
		t.Fatalf("direct write: expected 5, got %d", status)
	}

	buf := make([]byte, 16)
	status := v.DirectRead(ctx, "/direct.txt", buf, 0)
	if status != 5 {
		t.Fatalf("direct read: expected 5, got %d", status)
	}
	if string(buf[:5]) != "hello" {
		t.Errorf("expected %q, got %q", "hello", buf[:5])
	}
}

func TestDirectReadAll(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	fd := v.Open(ctx, "/all.txt", data.OpenCreate)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	v.Close(ctx, fd)

	if status := v.DirectWrite(ctx, "/all.txt", []byte("content"), 0); status != 7 {
		t.Fatalf("direct write failed with status %d", status)
	}

	content, status := v.DirectReadAll(ctx, "/all.txt")
	if status != 7 {
		t.Fatalf("expected 7, got %d", status)
	}

	if int64(len(content)) != status {
		t.Errorf("content length %d does not match status %d", len(content), status)
	}
	if string(content) != "content" {
		t.Errorf("expected %q, got %q", "content", content)
	}

	// A NUL terminator follows the content in the backing array.
	if content[:8][7] != 0 {
		t.Error("missing NUL terminator after content")
	}

	if _, status := v.DirectReadAll(ctx, "/nope.txt"); status != -int64(data.ErrNotExists) {
		t.Errorf("expected -NOT_EXISTS, got %d", status)
	}
}

func TestMkdirRm(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	if status := v.Mkdir(ctx, "/tmp"); status != 0 {
		t.Fatalf("mkdir failed with status %d", status)
	}

	fd := v.Open(ctx, "/tmp/a.txt", data.OpenCreate)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	v.Close(ctx, fd)

	if status := v.Rm(ctx, "/tmp/a.txt"); status != 0 {
		t.Fatalf("rm failed with status %d", status)
	}

	if status := v.Open(ctx, "/tmp/a.txt", 0); status != -int64(data.ErrNotExists) {
		t.Errorf("expected -NOT_EXISTS after rm, got %d", status)
	}

	if status := v.Rm(ctx, "/tmp"); status != 0 {
		t.Fatalf("rm of directory failed with status %d", status)
	}
}

func TestMount_Duplicate(t *testing.T) {
	v, _ := newTestVfs(t)

	status := v.Mount(t.Context(), vfs.FsTypeFat32, "/sys/", "/dev/hda2")
	if status != -int64(data.ErrAlreadyMounted) {
		t.Errorf("expected -ALREADY_MOUNTED, got %d", status)
	}
}

func TestMount_UnknownType(t *testing.T) {
	v, _ := newTestVfs(t)

	status := v.Mount(t.Context(), vfs.FsTypeUnknown, "/mnt/", "none")
	if status != -int64(data.ErrInvalidFileSystem) {
		t.Errorf("expected -INVALID_FILE_SYSTEM, got %d", status)
	}
}

func TestMount_LongestPrefixDispatch(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	if status := v.Mount(ctx, vfs.FsTypeFat32, "/data/", ":memory:"); status != 0 {
		t.Fatalf("mount /data/ failed with status %d", status)
	}
	if status := v.Mount(ctx, vfs.FsTypeFat32, "/data/deep/", ":memory:"); status != 0 {
		t.Fatalf("mount /data/deep/ failed with status %d", status)
	}
	if err := v.InitBackends(ctx); err != nil {
		t.Fatalf("init backends failed: %v", err)
	}

	// The file lands on the deepest matching mount.
	fd := v.Open(ctx, "/data/deep/a.txt", data.OpenCreate)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	v.Close(ctx, fd)

	// The shallower mount's root stays empty: the path /data/ resolves to
	// its own backend, not to a "data" directory on the root partition.
	dirFd := v.Open(ctx, "/data/", 0)
	if dirFd < 0 {
		t.Fatalf("open /data/ failed with status %d", dirFd)
	}
	defer v.Close(ctx, dirFd)

	buf := make([]byte, 4096)
	if total := v.Entries(ctx, dirFd, buf); total != 0 {
		t.Errorf("expected empty listing on /data/, got %d bytes", total)
	}
}

func TestMountFd(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	if status := v.Mkdir(ctx, "/srv"); status != 0 {
		t.Fatalf("mkdir failed with status %d", status)
	}

	mpFd := v.Open(ctx, "/srv", 0)
	if mpFd < 0 {
		t.Fatalf("open mount point failed with status %d", mpFd)
	}
	defer v.Close(ctx, mpFd)

	devFd := v.Open(ctx, "/dev/null", 0)
	if devFd < 0 {
		t.Fatalf("open device failed with status %d", devFd)
	}
	defer v.Close(ctx, devFd)

	if status := v.MountFd(ctx, vfs.FsTypeSysFs, mpFd, devFd); status != 0 {
		t.Fatalf("mount by descriptor failed with status %d", status)
	}

	// The joined form carries a trailing slash and must match the stored
	// canonical form exactly for duplicate detection.
	if status := v.MountFd(ctx, vfs.FsTypeSysFs, mpFd, devFd); status != -int64(data.ErrAlreadyMounted) {
		t.Errorf("expected -ALREADY_MOUNTED, got %d", status)
	}

	buf := make([]byte, 4096)
	total := v.Mounts(ctx, buf)
	if total < 0 {
		t.Fatalf("mounts failed with status %d", total)
	}

	records := parseMounts(t, buf[:total])
	last := records[len(records)-1]
	if last.mountPoint != "/srv/" || last.device != "/dev/null/" || last.fsType != "sysfs" {
		t.Errorf("unexpected mount record: %+v", last)
	}
}

func TestMountFd_BadDescriptors(t *testing.T) {
	v, _ := newTestVfs(t)

	status := v.MountFd(t.Context(), vfs.FsTypeSysFs, 777, 778)
	if status != -int64(data.ErrInvalidFileDescriptor) {
		t.Errorf("expected -INVALID_FILE_DESCRIPTOR, got %d", status)
	}
}

func TestEntries(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	if status := v.Mkdir(ctx, "/docs"); status != 0 {
		t.Fatalf("mkdir failed with status %d", status)
	}
	for _, name := range []string{"a", "bb"} {
		fd := v.Open(ctx, "/docs/"+name, data.OpenCreate)
		if fd < 0 {
			t.Fatalf("create %s failed with status %d", name, fd)
		}
		v.Close(ctx, fd)
	}

	fd := v.Open(ctx, "/docs", 0)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	// Too small by one byte: two headers, both names and their NULs need 53.
	small := make([]byte, 52)
	if status := v.Entries(ctx, fd, small); status != -int64(data.ErrBufferSmall) {
		t.Errorf("expected -BUFFER_SMALL, got %d", status)
	}

	buf := make([]byte, 4096)
	for i := range buf {
		buf[i] = 0xFF
	}

	total := v.Entries(ctx, fd, buf)
	if total != 53 {
		t.Fatalf("expected 53 bytes, got %d", total)
	}

	// Exactly the returned byte count was written.
	for i := total; i < int64(len(buf)); i++ {
		if buf[i] != 0xFF {
			t.Fatalf("byte %d beyond the listing was touched", i)
		}
	}

	records := parseEntries(t, buf[:total])
	if len(records) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(records))
	}
	if records[0].name != "a" || records[1].name != "bb" {
		t.Errorf("unexpected names: %+v", records)
	}
}

func TestEntries_EmptyDirectory(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	if status := v.Mkdir(ctx, "/empty"); status != 0 {
		t.Fatalf("mkdir failed with status %d", status)
	}

	fd := v.Open(ctx, "/empty", 0)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	if total := v.Entries(ctx, fd, make([]byte, 64)); total != 0 {
		t.Errorf("expected 0 bytes for empty directory, got %d", total)
	}
}

func TestSysfs_Facade(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	v.SysFs().SetValue("kernel/version", "1.0.0")

	content, status := v.DirectReadAll(ctx, "/sys/kernel/version")
	if status != 5 {
		t.Fatalf("expected 5, got %d", status)
	}
	if string(content) != "1.0.0" {
		t.Errorf("expected %q, got %q", "1.0.0", content)
	}

	// sysfs is read-only through the VFS.
	if status := v.DirectWrite(ctx, "/sys/kernel/version", []byte("2"), 0); status != -int64(data.ErrUnsupported) {
		t.Errorf("expected -UNSUPPORTED, got %d", status)
	}
	if status := v.Mkdir(ctx, "/sys/new"); status != -int64(data.ErrUnsupported) {
		t.Errorf("expected -UNSUPPORTED, got %d", status)
	}

	// System files carry the system flag in stat.
	fd := v.Open(ctx, "/sys/kernel/version", 0)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	var info data.StatInfo
	if status := v.Stat(ctx, fd, &info); status != 0 {
		t.Fatalf("stat failed with status %d", status)
	}
	if info.Flags&data.StatFlagSystem == 0 {
		t.Error("expected the system flag on a sysfs file")
	}
}

func TestDevfs_Facade(t *testing.T) {
	v, _ := newTestVfs(t)
	ctx := t.Context()

	// Writes to /dev/null vanish, reads return nothing.
	if status := v.DirectWrite(ctx, "/dev/null", []byte("gone"), 0); status != 4 {
		t.Errorf("write to null: expected 4, got %d", status)
	}
	buf := make([]byte, 8)
	if status := v.DirectRead(ctx, "/dev/null", buf, 0); status != 0 {
		t.Errorf("read from null: expected 0, got %d", status)
	}

	// /dev/zero always fills the buffer.
	buf = []byte{1, 2, 3, 4}
	if status := v.DirectRead(ctx, "/dev/zero", buf, 0); status != 4 {
		t.Errorf("read from zero: expected 4, got %d", status)
	}
	if !bytes.Equal(buf, []byte{0, 0, 0, 0}) {
		t.Errorf("expected zeros, got %v", buf)
	}

	// A registered RAM disk behaves like a block device.
	if err := v.DevFs().Register("hda3", devfs.NewRAMDisk(512)); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	fd := v.Open(ctx, "/dev/hda3", 0)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	if status := v.Write(ctx, fd, []byte("disk"), 100); status != 4 {
		t.Fatalf("write failed with status %d", status)
	}

	out := make([]byte, 4)
	if status := v.Read(ctx, fd, out, 100); status != 4 {
		t.Fatalf("read failed with status %d", status)
	}
	if string(out) != "disk" {
		t.Errorf("expected %q, got %q", "disk", out)
	}

	// Clearing zeroes the range in place.
	if status := v.Clear(ctx, fd, 4, 100); status != 4 {
		t.Fatalf("clear failed with status %d", status)
	}
	if status := v.Read(ctx, fd, out, 100); status != 4 {
		t.Fatalf("read failed with status %d", status)
	}
	if !bytes.Equal(out, []byte{0, 0, 0, 0}) {
		t.Errorf("expected zeros after clear, got %v", out)
	}
}

func TestProcfs_Facade(t *testing.T) {
	v, table := newTestVfs(t)
	ctx := t.Context()

	table.RegisterProcess(1, "init", "running")
	table.RegisterProcess(7, "shell", "blocked")

	content, status := v.DirectReadAll(ctx, "/proc/1/name")
	if status < 0 {
		t.Fatalf("read failed with status %d", status)
	}
	if string(content) != "init\n" {
		t.Errorf("expected %q, got %q", "init\n", content)
	}

	content, status = v.DirectReadAll(ctx, "/proc/7/status")
	if status < 0 {
		t.Fatalf("read failed with status %d", status)
	}
	if string(content) != "blocked\n" {
		t.Errorf("expected %q, got %q", "blocked\n", content)
	}

	// The root listing carries uptime plus one directory per process.
	fd := v.Open(ctx, "/proc/", 0)
	if fd < 0 {
		t.Fatalf("open failed with status %d", fd)
	}
	defer v.Close(ctx, fd)

	buf := make([]byte, 4096)
	total := v.Entries(ctx, fd, buf)
	if total < 0 {
		t.Fatalf("entries failed with status %d", total)
	}

	records := parseEntries(t, buf[:total])
	if len(records) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(records))
	}
	if records[0].name != "uptime" || records[1].name != "1" || records[2].name != "7" {
		t.Errorf("unexpected listing: %+v", records)
	}

	if status := v.Rm(ctx, "/proc/1"); status != -int64(data.ErrUnsupported) {
		t.Errorf("expected -UNSUPPORTED, got %d", status)
	}
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func TestWithClock(t *testing.T) {
	clock := &fixedClock{now: time.Unix(5000, 0)}

	table := sched.New()
	v, err := vfs.New(
		vfs.WithScheduler(table),
		vfs.WithRootDevice(":memory:"),
		vfs.WithClock(clock),
		vfs.WithLogLevel(log.Error),
		vfs.WithoutTerminalLog(),
	)
	if err != nil {
		t.Fatalf("failed to create vfs: %v", err)
	}
	if err := v.Init(t.Context()); err != nil {
		t.Fatalf("failed to init vfs: %v", err)
	}

	clock.now = clock.now.Add(42 * time.Second)

	content, status := v.DirectReadAll(t.Context(), "/proc/uptime")
	if status != 3 {
		t.Fatalf("expected 3, got %d", status)
	}
	if string(content) != "42\n" {
		t.Errorf("expected %q, got %q", "42\n", content)
	}
}
