package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/erasrts/server/internal/core/ecs"
	"github.com/erasrts/server/internal/world"
)

// encodeVersion bumps whenever the canonical layout changes; it is folded
// into every checksum so peers on different builds fault immediately instead
// of diverging silently later.
const encodeVersion uint32 = 1

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *writer) u32(v uint32) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *writer) i32(v int32)  { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *writer) u64(v uint64) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *writer) i64(v int64)  { binary.Write(&w.buf, binary.LittleEndian, v) }

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

// Record is one canonically encoded state row, keyed for delta diffing.
type Record struct {
	Key  string
	Data []byte
}

// EncodeRecords walks the full match state in canonical order — nations by
// ascending id, entities by ascending id, director last — and returns one
// record per row. The concatenation of all records is the checksum input.
func EncodeRecords(s *world.State) []Record {
	var records []Record

	for _, id := range s.NationIDs() {
		n := s.Nation(id)
		var w writer
		encodeNation(&w, n)
		records = append(records, Record{Key: fmt.Sprintf("n:%08d", id), Data: w.buf.Bytes()})
	}

	s.ECS.Each(func(id ecs.EntityID) {
		var w writer
		encodeEntity(&w, s, id)
		records = append(records, Record{Key: fmt.Sprintf("e:%016x", uint64(id)), Data: w.buf.Bytes()})
	})

	var w writer
	w.u32(encodeVersion)
	w.u64(s.Tick)
	w.i32(s.Director.Phase)
	for _, t := range s.Director.ActivatedAt {
		w.u64(t)
	}
	w.i64(s.Director.ZombieKills)
	records = append(records, Record{Key: "z:director", Data: w.buf.Bytes()})

	return records
}

// Encode returns the full canonical byte stream.
func Encode(s *world.State) []byte {
	var buf bytes.Buffer
	for _, r := range EncodeRecords(s) {
		buf.WriteString(r.Key)
		buf.Write(r.Data)
	}
	return buf.Bytes()
}

func encodeNation(w *writer, n *world.Nation) {
	w.i32(n.ID)
	for _, stock := range n.Stocks {
		w.i64(stock)
	}
	w.i32(n.SupplyCap)
	w.i32(n.SupplyUsed)
	w.u32(uint32(len(n.Unlocked)))
	for _, id := range n.Unlocked {
		w.str(id)
	}
	w.str(n.Researching)
	w.i32(n.ResearchLeft)
	w.bool(n.Alive)
	w.u64(uint64(n.Base))
}

func encodeEntity(w *writer, s *world.State, id ecs.EntityID) {
	w.u64(uint64(id))
	if a, ok := s.Actors.Get(id); ok {
		w.u8(1)
		w.str(a.TypeID)
		w.i32(a.Owner)
	} else {
		w.u8(0)
	}
	if p, ok := s.Positions.Get(id); ok {
		w.u8(1)
		w.i32(p.X)
		w.i32(p.Y)
	} else {
		w.u8(0)
	}
	if h, ok := s.Healths.Get(id); ok {
		w.u8(1)
		w.i32(h.HP)
		w.i32(h.Max)
	} else {
		w.u8(0)
	}
	if c, ok := s.Combats.Get(id); ok {
		w.u8(1)
		w.u64(c.CooldownLeft)
	} else {
		w.u8(0)
	}
	if act, ok := s.Actions.Get(id); ok {
		w.u8(1)
		w.u8(uint8(act.State))
		w.u64(uint64(act.Target))
		w.i32(act.DestX)
		w.i32(act.DestY)
		w.u64(act.MoveCooldown)
	} else {
		w.u8(0)
	}
	if st, ok := s.Statuses.Get(id); ok {
		w.u8(1)
		w.u32(uint32(len(st.Effects)))
		for _, e := range st.Effects {
			w.u8(uint8(e.Kind))
			w.str(e.Stat)
			w.i32(e.Permille)
			w.u64(e.ExpiresAtTick)
			w.str(e.SourceTypeID)
		}
	} else {
		w.u8(0)
	}
	if nest, ok := s.Nests.Get(id); ok {
		w.u8(1)
		w.u64(nest.NextSpawnTick)
	} else {
		w.u8(0)
	}
	if node, ok := s.Nodes.Get(id); ok {
		w.u8(1)
		w.str(node.Kind)
		w.i64(node.Remaining)
		w.bool(node.Infinite)
		w.u64(node.CooldownTicks)
		w.u64(node.CooldownLeft)
	} else {
		w.u8(0)
	}
}
