package redis

import "strconv"

const (
	// KeyPrefixSession is the prefix for session records
	KeyPrefixSession = "smartmarks:session:"
	// KeyPrefixSnapshot is the prefix for cached per-owner bookmark lists
	KeyPrefixSnapshot = "smartmarks:snapshot:"
	// KeyPrefixSnapshotGen is the prefix for per-owner cache generations
	KeyPrefixSnapshotGen = "smartmarks:snapgen:"
)

// SessionKey returns the Redis key for a session by ID
func SessionKey(id string) string {
	return KeyPrefixSession + id
}

// SnapshotKey returns the Redis key for an owner's list cached under gen
func SnapshotKey(ownerID string, gen int64) string {
	return KeyPrefixSnapshot + ownerID + ":" + strconv.FormatInt(gen, 10)
}

// SnapshotGenKey returns the Redis key holding an owner's cache generation
func SnapshotGenKey(ownerID string) string {
	return KeyPrefixSnapshotGen + ownerID
}
