// Copyright 2024 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pidfile guards against concurrent tracking runs of the same
// tool instance. A run that has no wall-clock stop condition ends on a
// signal; the pidfile tells the signaling side which process to signal
// and whether a run is still alive.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

var pidFilePath = defaultPath()

// GetPath returns the current pidfile path.
func GetPath() string {
	return pidFilePath
}

// SetPath sets the pidfile path to the given one.
func SetPath(path string) {
	pidFilePath = path
}

// Write creates the pidfile with the pid of this process. Creation is
// exclusive: if the file already exists Write fails, also when the
// process that wrote it is long gone. Use OwnerPid first to tell a
// live owner from a stale file.
func Write() error {
	if err := os.MkdirAll(filepath.Dir(pidFilePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create pidfile directory")
	}

	f, err := os.OpenFile(pidFilePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create pidfile")
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		os.Remove(pidFilePath)
		return errors.Wrap(err, "failed to write pidfile")
	}
	return nil
}

// Read returns the process ID recorded in the pidfile, or 0 when there
// is no pidfile.
func Read() (int, error) {
	buf, err := os.ReadFile(pidFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, errors.Wrap(err, "failed to read pidfile")
	}

	pid, err := strconv.Atoi(strings.TrimRight(string(buf), "\n"))
	if err != nil {
		return -1, errors.Wrapf(err, "invalid pid %q in pidfile", string(buf))
	}
	return pid, nil
}

// Remove removes the pidfile unconditionally, regardless of which
// process created it.
func Remove() error {
	if err := os.Remove(pidFilePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// OwnerPid returns the ID of the live process owning the pidfile. 0 is
// returned when no live process owns the file, so a stale pidfile left
// behind by a killed run does not count as an owner.
func OwnerPid() (int, error) {
	pid, err := Read()
	if err != nil {
		return -1, err
	}
	if pid == 0 {
		return 0, nil
	}

	p, err := os.FindProcess(pid)
	if err != nil {
		return -1, errors.Wrapf(err, "FindProcess() failed for pid %d", pid)
	}

	err = p.Signal(syscall.Signal(0))
	if err == os.ErrProcessDone || err == syscall.ESRCH {
		return 0, nil
	}
	if err == nil {
		return pid, nil
	}
	return -1, errors.Wrapf(err, "failed to check process %d", pid)
}

func defaultPath() string {
	name := "dirtytrack"
	if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}
	if os.Geteuid() > 0 {
		return filepath.Join("/tmp", name+".pid")
	}
	return filepath.Join("/", "var", "run", name+".pid")
}
