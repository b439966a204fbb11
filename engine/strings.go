package engine

import (
	"context"

	"github.com/wasmlua/wasmlua/errors"
)

// Strings cross the boundary as (ptr, len) pairs into guest linear memory,
// and come back packed into a single i64. A zero ptr is the null
// equivalent; the empty string keeps a non-zero ptr with len 0, so null and
// "" never collapse into each other.

// Pack combines a guest pointer and length into the i64 return encoding.
func Pack(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// Unpack splits the i64 return encoding. ptr == 0 means null.
func Unpack(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}

// NewString copies s into guest memory via the guest allocator and returns
// the block. The caller owns the block and must release it with Free; these
// references are not collected within a call and accumulate otherwise.
// Guests must return a non-zero address even for zero-length requests.
func (a *Attachment) NewString(ctx context.Context, s string) (ptr, length uint32, err error) {
	n := uint32(len(s))

	res, callErr := a.alloc.Call(ctx, uint64(n))
	if callErr != nil {
		return 0, 0, errors.Allocation(n, callErr)
	}
	ptr = uint32(res[0])
	if ptr == 0 {
		return 0, 0, errors.Allocation(n, nil)
	}

	if n > 0 {
		if !a.mod.Memory().Write(ptr, []byte(s)) {
			a.Free(ctx, ptr, n)
			return 0, 0, errors.OutOfBounds(ptr, n)
		}
	}
	return ptr, n, nil
}

// ReadString copies a guest string out of linear memory.
func (a *Attachment) ReadString(ptr, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	b, ok := a.mod.Memory().Read(ptr, length)
	if !ok {
		return "", errors.OutOfBounds(ptr, length)
	}
	return string(b), nil
}

// Free releases a guest memory block obtained from NewString or handed back
// by the guest as a call result. Freeing the null reference is a no-op.
func (a *Attachment) Free(ctx context.Context, ptr, length uint32) error {
	if ptr == 0 {
		return nil
	}
	_, err := a.free.Call(ctx, uint64(ptr), uint64(length))
	return err
}
