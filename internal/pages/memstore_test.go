/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package pages_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carouselstudio/internal/pages"
	"carouselstudio/internal/pages/pagestest"
)

func TestMemoryStoreContract(t *testing.T) {
	pagestest.RunStoreContract(t, func(t *testing.T) pages.Store { return pages.NewMemoryStore() })
}

func TestValidateReorder(t *testing.T) {
	cur := []pages.Page{{ID: "a", Order: 0}, {ID: "b", Order: 1}, {ID: "c", Order: 2}}

	next, err := pages.ValidateReorder(cur, []pages.OrderAssignment{{ID: "a", Order: 1}, {ID: "b", Order: 0}})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 0, "c": 2}, next)

	_, err = pages.ValidateReorder(cur, []pages.OrderAssignment{{ID: "x", Order: 5}})
	assert.ErrorIs(t, err, pages.ErrForeignPage)
	_, err = pages.ValidateReorder(cur, []pages.OrderAssignment{{ID: "a", Order: -1}})
	assert.ErrorIs(t, err, pages.ErrInvalidOrder)
	_, err = pages.ValidateReorder(cur, []pages.OrderAssignment{{ID: "a", Order: 2}})
	assert.ErrorIs(t, err, pages.ErrInvalidOrder)
}
