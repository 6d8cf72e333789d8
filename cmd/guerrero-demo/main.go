package main

import (
	"fmt"
	"os"

	"github.com/nmxmxh/guerrero/inspector"
	"github.com/nmxmxh/guerrero/registry"
	"github.com/nmxmxh/guerrero/schema"
	"github.com/nmxmxh/guerrero/tlsf"
	"github.com/nmxmxh/guerrero/view"
)

const playerTypeID = 1

func playerSchema() *schema.Layout {
	return schema.Build("Player", []schema.FieldSpec{
		{PropertyKey: "hp", Info: schema.BinaryInfo{Kind: schema.KindPrimitive, Primitive: schema.U32}},
		{PropertyKey: "name", Info: schema.BinaryInfo{Kind: schema.KindDynamicString}},
		{PropertyKey: "inventory", Info: schema.BinaryInfo{
			Kind:        schema.KindDynamicArray,
			ElementInfo: &schema.BinaryInfo{Kind: schema.KindPrimitive, Primitive: schema.U32},
		}},
	})
}

func main() {
	fmt.Println("guerrero memory demo starting...")

	buf := make([]byte, 1<<16)
	reg := registry.New()
	alloc, err := tlsf.New(buf, 0, 0, reg)
	if err != nil {
		fmt.Println("allocator init failed:", err)
		os.Exit(1)
	}

	sch := playerSchema()
	ptr := alloc.Allocate(sch.TotalSize, playerTypeID, 0)
	if ptr == 0 {
		fmt.Println("allocate failed")
		os.Exit(1)
	}
	fmt.Println("allocated Player record at pointer", ptr)

	player := view.New(buf, ptr, alloc, sch)
	if err := player.SetUint("hp", 100); err != nil {
		fmt.Println("set hp failed:", err)
		os.Exit(1)
	}
	if err := player.SetString("name", "Ada"); err != nil {
		fmt.Println("set name failed:", err)
		os.Exit(1)
	}
	for _, item := range []uint64{7, 3, 19} {
		if err := player.ArrayPushUint("inventory", item); err != nil {
			fmt.Println("push inventory item failed:", err)
			os.Exit(1)
		}
	}

	name, _ := player.String("name")
	hp, _ := player.GetUint("hp")
	length, _ := player.ArrayLength("inventory")
	fmt.Printf("player %q has %d hp and %d inventory items\n", name, hp, length)

	node := inspector.Inspect(player, inspector.Options{})
	fmt.Println("inspected tree:")
	printNode(node, 0)

	if err := player.Free(); err != nil {
		fmt.Println("free failed:", err)
		os.Exit(1)
	}
	fmt.Println("player record and all its dynamic children freed")
}

func printNode(n inspector.Node, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	if n.Value != nil {
		fmt.Printf("%s%s (%s) = %v\n", indent, n.Name, n.Type, n.Value)
	} else {
		fmt.Printf("%s%s (%s)\n", indent, n.Name, n.Type)
	}
	for _, child := range n.Children {
		printNode(child, depth+1)
	}
}
