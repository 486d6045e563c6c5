/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type wireSnapshot struct {
	Version string            `json:"version"`
	Objects []json.RawMessage `json:"objects"`
}

type wireHead struct {
	Type Kind   `json:"type"`
	Role string `json:"role"`
}

// Marshal produces the canonical serialized form. Only allowlisted fields are written.
func Marshal(s Snapshot) ([]byte, error) {
	w := wireSnapshot{Version: s.Version, Objects: make([]json.RawMessage, 0, len(s.Objects))}
	if w.Version == "" {
		w.Version = FormatVersion
	}
	for i, o := range s.Objects {
		b, err := encodeObject(o)
		if err != nil {
			return nil, fmt.Errorf("scene: encode object %d: %w", i, err)
		}
		w.Objects = append(w.Objects, b)
	}
	return json.Marshal(w)
}

// MarshalString is Marshal returning a string.
func MarshalString(s Snapshot) (string, error) {
	b, err := Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeObject(o Object) ([]byte, error) {
	switch v := o.(type) {
	case *Workspace:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Workspace
		}{KindRect, v})
	case *RectObj:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*RectObj
		}{KindRect, v})
	case *PolygonObj:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*PolygonObj
		}{KindPolygon, v})
	case *TextObj:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*TextObj
		}{KindText, v})
	case *ImageObj:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*ImageObj
		}{KindImage, v})
	case *PathObj:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*PathObj
		}{KindPath, v})
	default:
		return nil, fmt.Errorf("unsupported descriptor %T", o)
	}
}

// Unmarshal parses a serialized snapshot. Unknown fields are dropped, a lone
// workspace found at a non-zero index is moved to index 0, and the result is validated.
func Unmarshal(data []byte) (Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return Snapshot{}, fmt.Errorf("scene: decode snapshot: %w", err)
	}
	s := Snapshot{Version: w.Version, Objects: make([]Object, 0, len(w.Objects))}
	if s.Version == "" {
		s.Version = FormatVersion
	}
	for i, raw := range w.Objects {
		o, err := decodeObject(raw)
		if err != nil {
			return Snapshot{}, fmt.Errorf("scene: decode object %d: %w", i, err)
		}
		s.Objects = append(s.Objects, o)
	}
	s.PinWorkspace()
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// UnmarshalString is Unmarshal over a string.
func UnmarshalString(data string) (Snapshot, error) { return Unmarshal([]byte(data)) }

func decodeObject(raw json.RawMessage) (Object, error) {
	var head wireHead
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	var o Object
	switch head.Type {
	case KindRect:
		if head.Role == RoleWorkspace {
			o = &Workspace{}
		} else {
			o = &RectObj{}
		}
	case KindPolygon:
		o = &PolygonObj{}
	case KindText:
		o = &TextObj{}
	case KindImage:
		o = &ImageObj{}
	case KindPath:
		o = &PathObj{}
	default:
		return nil, fmt.Errorf("unknown descriptor type %q", head.Type)
	}
	if err := json.Unmarshal(raw, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Equal reports whether two snapshots serialize identically.
func Equal(a, b Snapshot) bool {
	ab, errA := Marshal(a)
	bb, errB := Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}
