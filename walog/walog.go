// Package walog is a segment-file write-ahead log: append-only records
// checksummed with xxhash, rotated across fixed-size segments. atomicop
// writes an audit trail of commit and abort records to it; rollback itself
// restores before-images kept in memory and never reads the log. This
// package does not implement crash replay across restarts.
package walog

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// RecordHeaderSize is the fixed width of a record's LSN+length+checksum
// header, ahead of its variable-length payload.
const RecordHeaderSize = 20 // LSN(8) + LEN(4) + checksum(8)

// SegmentSize bounds how large a single segment file is allowed to grow
// before a new one is rotated in.
const SegmentSize = 16 * 1024 * 1024

// Log is an append-only, segment-rotated write-ahead log.
type Log struct {
	mu         sync.Mutex
	directory  string
	segments   map[uint64]*segment
	curr       *segment
	currentLSN uint64
}

type segment struct {
	mu   sync.Mutex
	id   uint64
	path string
	f    *os.File
	size int64
}

// Open opens (creating if necessary) the WAL rooted at directory,
// recovering the segment set and current LSN from whatever is already
// there.
func Open(directory string) (*Log, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("walog: mkdir %s: %w", directory, err)
	}

	l := &Log{directory: directory, segments: make(map[uint64]*segment)}
	if err := l.recover(); err != nil {
		return nil, err
	}
	if l.curr == nil {
		if err := l.rotate(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func segmentPath(directory string, id uint64) string {
	return filepath.Join(directory, fmt.Sprintf("walog_%016x.log", id))
}

func (l *Log) recover() error {
	files, err := filepath.Glob(filepath.Join(l.directory, "walog_*.log"))
	if err != nil {
		return err
	}

	var ids []uint64
	for _, f := range files {
		name := filepath.Base(f)
		if !strings.HasPrefix(name, "walog_") || !strings.HasSuffix(name, ".log") {
			continue
		}
		hexPart := strings.TrimSuffix(strings.TrimPrefix(name, "walog_"), ".log")
		id, err := strconv.ParseUint(hexPart, 16, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)

	maxLSN := uint64(0)
	for _, id := range ids {
		seg, err := openSegment(segmentPath(l.directory, id), id)
		if err != nil {
			return err
		}
		l.segments[id] = seg
		lsn, err := largestLSN(seg)
		if err != nil {
			return err
		}
		if lsn > maxLSN {
			maxLSN = lsn
		}
	}

	l.curr = l.segments[ids[len(ids)-1]]
	l.currentLSN = maxLSN
	return nil
}

func (l *Log) rotate() error {
	id := uint64(len(l.segments))
	seg, err := openSegment(segmentPath(l.directory, id), id)
	if err != nil {
		return err
	}
	l.segments[id] = seg
	l.curr = seg
	return nil
}

func openSegment(path string, id uint64) (*segment, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("walog: open segment %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &segment{id: id, path: path, f: f, size: stat.Size()}, nil
}

func (s *segment) isFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size >= SegmentSize
}

func (s *segment) append(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.f.Write(data)
	if err != nil {
		return err
	}
	s.size += int64(n)
	return nil
}

func (s *segment) sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Sync()
}

func (s *segment) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func checksum(lsn uint64, data []byte) uint64 {
	h := xxhash.New()
	var lsnBytes [8]byte
	binary.BigEndian.PutUint64(lsnBytes[:], lsn)
	h.Write(lsnBytes[:])
	h.Write(data)
	return h.Sum64()
}

func encodeRecord(lsn uint64, data []byte) []byte {
	out := make([]byte, RecordHeaderSize+len(data))
	binary.BigEndian.PutUint64(out[0:8], lsn)
	binary.BigEndian.PutUint32(out[8:12], uint32(len(data)))
	binary.BigEndian.PutUint64(out[12:20], checksum(lsn, data))
	copy(out[20:], data)
	return out
}

// Append writes data as a new record and returns its assigned LSN. The
// record is durable in the sense that it is written to the OS file
// buffer; call Sync to force it to stable storage.
func (l *Log) Append(data []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentLSN++
	lsn := l.currentLSN

	if l.curr.isFull() {
		if err := l.rotate(); err != nil {
			return 0, err
		}
	}
	if err := l.curr.append(encodeRecord(lsn, data)); err != nil {
		return 0, fmt.Errorf("walog: append lsn %d: %w", lsn, err)
	}
	return lsn, nil
}

// Sync forces the current segment's contents to stable storage.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.curr.sync()
}

// Close syncs and closes every open segment.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, seg := range l.segments {
		if err := seg.sync(); err != nil {
			return err
		}
		if err := seg.close(); err != nil {
			return err
		}
	}
	return nil
}

// Record is one decoded WAL entry, produced by ReplayFromLSN.
type Record struct {
	LSN  uint64
	Data []byte
}

// ReplayFromLSN calls fn with every record whose LSN is >= startLSN, in
// segment then LSN order. It exists to let a caller rebuild in-memory
// state from the log's audit trail within the current process run; it is
// not invoked automatically on Open, since this module does not implement
// crash recovery across restarts.
func (l *Log) ReplayFromLSN(startLSN uint64, fn func(Record) error) error {
	l.mu.Lock()
	var ids []uint64
	for id := range l.segments {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	slices.Sort(ids)

	for _, id := range ids {
		l.mu.Lock()
		seg := l.segments[id]
		l.mu.Unlock()
		if err := replaySegment(seg, startLSN, fn); err != nil {
			return fmt.Errorf("walog: replay segment %d: %w", id, err)
		}
	}
	return nil
}

func replaySegment(seg *segment, startLSN uint64, fn func(Record) error) error {
	seg.mu.Lock()
	defer seg.mu.Unlock()

	f, err := os.Open(seg.path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, RecordHeaderSize)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		lsn := binary.BigEndian.Uint64(header[0:8])
		dataLen := binary.BigEndian.Uint32(header[8:12])
		wantSum := binary.BigEndian.Uint64(header[12:20])

		data := make([]byte, dataLen)
		if _, err := io.ReadFull(f, data); err != nil {
			return err
		}
		if checksum(lsn, data) != wantSum {
			return fmt.Errorf("walog: checksum mismatch at lsn %d", lsn)
		}
		if lsn < startLSN {
			continue
		}
		if err := fn(Record{LSN: lsn, Data: data}); err != nil {
			return fmt.Errorf("walog: apply record lsn %d: %w", lsn, err)
		}
	}
	return nil
}

func largestLSN(seg *segment) (uint64, error) {
	f, err := os.Open(seg.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	max := uint64(0)
	header := make([]byte, RecordHeaderSize)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			break
		}
		lsn := binary.BigEndian.Uint64(header[0:8])
		dataLen := binary.BigEndian.Uint32(header[8:12])
		if lsn > max {
			max = lsn
		}
		if _, err := f.Seek(int64(dataLen), io.SeekCurrent); err != nil {
			break
		}
	}
	return max, nil
}
