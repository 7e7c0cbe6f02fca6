// SPDX-License-Identifier: GPL-3.0-or-later

package framer_test

import (
	"bytes"
	"fmt"

	"github.com/bassosimone/octf/framer"
	"github.com/bassosimone/octf/wire"
)

func Example() {
	var buf bytes.Buffer
	f := framer.New(&buf)

	if err := f.WritePacket(&wire.Packet{Cancel: &wire.Cancel{SequenceID: 42}}); err != nil {
		panic(err)
	}

	got, err := f.ReadPacket()
	if err != nil {
		panic(err)
	}
	fmt.Println(got.Cancel.SequenceID)
	// Output: 42
}
