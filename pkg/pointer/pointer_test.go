// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pointer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/warden/pkg/pointer"
)

/* TestHelpers covers To, Val and NilIfZero. */
func TestHelpers(t *testing.T) {
	assert.Equal(t, "a", *pointer.To("a"))
	assert.Equal(t, "", pointer.Val[string](nil))
	assert.Equal(t, 3, pointer.Val(pointer.To(3)))
	assert.Nil(t, pointer.NilIfZero(""))
	assert.Equal(t, pointer.To("x"), pointer.NilIfZero("x"))
}
