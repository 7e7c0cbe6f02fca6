// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNodeId(t *testing.T) {
	assert.NoError(t, ValidateNodeId("root"))
	assert.NoError(t, ValidateNodeId("dev_0-1"))
	assert.Error(t, ValidateNodeId(""))
	assert.Error(t, ValidateNodeId("has:colon"))
	assert.Error(t, ValidateNodeId("has space"))
}

func TestNodePathString(t *testing.T) {
	p := NodePath{"root", "dev0", "queue1"}
	assert.Equal(t, "root:dev0:queue1", p.String())
}

func TestNodePathStringsRoundTrip(t *testing.T) {
	p := NodePath{"root", "dev0"}
	assert.Equal(t, p, NodePathFromStrings(p.Strings()))
}
