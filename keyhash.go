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
	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-farm"
)

// KeyToHash returns two hashes of the given key: a primary hash used to
// place the key and a conflict hash used to tell apart two keys that
// collide on the primary. Integer keys are their own primary hash with a
// zero conflict (no collisions possible); strings and byte slices are
// hashed twice with independent functions. It accepts string, bytes and
// all integer types except uintptr.
func KeyToHash(key interface{}) (uint64, uint64) {
	if key == nil {
		return 0, 0
	}
	switch k := key.(type) {
	case uint64:
		return k, 0
	case byte:
		return uint64(k), 0
	case int:
		return uint64(k), 0
	case int32:
		return uint64(k), 0
	case uint32:
		return uint64(k), 0
	case int64:
		return uint64(k), 0
	case string:
		return xxhash.Sum64String(k), farm.Fingerprint64([]byte(k))
	case []byte:
		return xxhash.Sum64(k), farm.Fingerprint64(k)
	default:
		panic("Key type not supported")
	}
}
