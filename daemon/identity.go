package daemon

import (
	"fmt"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// Identity is the numeric uid/gid pair a daemon runs as after dropping
// privileges.
type Identity struct {
	UID int
	GID int
}

func (id Identity) String() string {
	return fmt.Sprintf("uid=%d gid=%d", id.UID, id.GID)
}

// ResolveIdentity translates the configured user and group names into numeric
// ids. The second return value reports whether a privilege drop was requested
// at all; when both names are empty it is false and the Identity is zero.
// A group name given without a user applies to the current user. A user given
// without a group uses that user's primary group.
func ResolveIdentity(userName, groupName string) (Identity, bool, error) {
	if userName == "" && groupName == "" {
		return Identity{}, false, nil
	}

	var id Identity
	if userName != "" {
		u, err := user.Lookup(userName)
		if err != nil {
			return Identity{}, false, fmt.Errorf("lookup user %q: %w", userName, err)
		}
		id.UID, err = strconv.Atoi(u.Uid)
		if err != nil {
			return Identity{}, false, fmt.Errorf("parse uid for %q: %w", userName, err)
		}
		id.GID, err = strconv.Atoi(u.Gid)
		if err != nil {
			return Identity{}, false, fmt.Errorf("parse gid for %q: %w", userName, err)
		}
	} else {
		id.UID = unix.Getuid()
		id.GID = unix.Getgid()
	}

	if groupName != "" {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return Identity{}, false, fmt.Errorf("lookup group %q: %w", groupName, err)
		}
		id.GID, err = strconv.Atoi(g.Gid)
		if err != nil {
			return Identity{}, false, fmt.Errorf("parse gid for group %q: %w", groupName, err)
		}
	}
	return id, true, nil
}

// applyIdentity switches the process to the resolved identity. The group must
// change before the user: once the uid drops, setgid is no longer permitted.
func applyIdentity(id Identity) error {
	if err := unix.Setgid(id.GID); err != nil {
		return fmt.Errorf("setgid %d: %w", id.GID, err)
	}
	if err := unix.Setuid(id.UID); err != nil {
		return fmt.Errorf("setuid %d: %w", id.UID, err)
	}
	return nil
}

func disableCoreDumps() error {
	return unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})
}
