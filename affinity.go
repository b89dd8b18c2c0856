/*
 * Copyright 2025 Doppio Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package doppio

import (
	"runtime"

	"github.com/pkg/errors"
)

// PinOSThread locks the calling goroutine to its OS thread and, where the
// platform supports it, binds that thread to the given CPU. Pinning the
// producer and consumer to distinct cores keeps the ring's cursor
// cache lines from migrating, which matters when measuring it. On
// platforms without affinity support only the LockOSThread part happens.
//
// Callers pair it with UnpinOSThread when done.
func PinOSThread(cpu int) error {
	runtime.LockOSThread()
	if err := setAffinity(cpu); err != nil {
		runtime.UnlockOSThread()
		return errors.Wrapf(err, "pinning to cpu %d", cpu)
	}
	return nil
}

// UnpinOSThread releases the lock taken by PinOSThread. The kernel
// affinity mask is left as-is; the thread returns to the scheduler pool.
func UnpinOSThread() {
	runtime.UnlockOSThread()
}
