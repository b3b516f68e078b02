package locking

import (
	"os"
	"testing"
	"time"

	"github.com/fulldump/biff"
)

func testDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "idxdb-locking-*")
	biff.AssertNil(err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestAcquireAndRelease(t *testing.T) {
	dir := testDir(t)

	lock, err := Acquire(dir, 0)
	biff.AssertNil(err)

	biff.AssertNil(lock.Release())
}

func TestAcquireNonBlockingFailsWhenHeld(t *testing.T) {
	dir := testDir(t)

	lock, err := Acquire(dir, 0)
	biff.AssertNil(err)
	defer lock.Release()

	_, err = Acquire(dir, 0)
	biff.AssertEqual(err != nil, true)
}

func TestAcquireTimesOutWhenHeld(t *testing.T) {
	dir := testDir(t)

	lock, err := Acquire(dir, 0)
	biff.AssertNil(err)
	defer lock.Release()

	start := time.Now()
	_, err = Acquire(dir, 50*time.Millisecond)
	biff.AssertEqual(err != nil, true)
	biff.AssertEqual(time.Since(start) >= 50*time.Millisecond, true)
}

func TestAcquireSucceedsAfterRelease(t *testing.T) {
	dir := testDir(t)

	lock, err := Acquire(dir, 0)
	biff.AssertNil(err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		lock.Release()
	}()

	_, err = Acquire(dir, 500*time.Millisecond)
	biff.AssertNil(err)
}
