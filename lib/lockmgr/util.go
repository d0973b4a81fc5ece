package lockmgr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/distproc/pstore/lib/keyschema"
)

// --------------------------------------------------------------------------
// Lock Info Record
// --------------------------------------------------------------------------

// lockInfo is the metadata record kept next to every distributed lock. It
// is persisted as "usageCount_expirationUnixSeconds_owningPid_base64(name)"
// to stay readable by the other language bindings of this store. An
// unowned lock carries a zeroed record with only the name set.
type lockInfo struct {
	UsageCount     uint32
	ExpirationUnix int64
	OwningPid      int
	Name           string
}

// held reports whether the record describes a live lease at the given
// wall clock second.
func (li lockInfo) held(nowUnix int64) bool {
	return li.UsageCount > 0 && li.ExpirationUnix > nowUnix
}

func encodeLockInfo(li lockInfo) []byte {
	return []byte(fmt.Sprintf("%d_%d_%d_%s",
		li.UsageCount, li.ExpirationUnix, li.OwningPid, keyschema.EncodeName(li.Name)))
}

func decodeLockInfo(raw []byte) (lockInfo, error) {
	parts := strings.SplitN(string(raw), "_", 4)
	if len(parts) != 4 {
		return lockInfo{}, fmt.Errorf("malformed lock info record %q", raw)
	}

	usage, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return lockInfo{}, fmt.Errorf("malformed usage count in lock info record: %v", err)
	}
	expiration, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return lockInfo{}, fmt.Errorf("malformed expiration in lock info record: %v", err)
	}
	pid, err := strconv.Atoi(parts[2])
	if err != nil {
		return lockInfo{}, fmt.Errorf("malformed pid in lock info record: %v", err)
	}
	name, err := keyschema.DecodeName(parts[3])
	if err != nil {
		return lockInfo{}, fmt.Errorf("malformed name in lock info record: %v", err)
	}

	return lockInfo{
		UsageCount:     uint32(usage),
		ExpirationUnix: expiration,
		OwningPid:      pid,
		Name:           name,
	}, nil
}
