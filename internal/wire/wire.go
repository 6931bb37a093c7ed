// Package wire encodes simulation frames as the protobuf messages described
// by proto/evac.proto. The schema is registered at init and frames are built
// as dynamic messages against it.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"evacsim/internal/sim"
)

// Snapshot fields.
const (
	snapshotRunID    protoreflect.FieldNumber = 1
	snapshotSeed     protoreflect.FieldNumber = 2
	snapshotTick     protoreflect.FieldNumber = 3
	snapshotEnRoute  protoreflect.FieldNumber = 4
	snapshotSafe     protoreflect.FieldNumber = 5
	snapshotComplete protoreflect.FieldNumber = 6
	snapshotPace     protoreflect.FieldNumber = 7
	snapshotPaused   protoreflect.FieldNumber = 8
	snapshotAgents   protoreflect.FieldNumber = 9
)

// Agent fields.
const (
	agentID            protoreflect.FieldNumber = 1
	agentLat           protoreflect.FieldNumber = 2
	agentLng           protoreflect.FieldNumber = 3
	agentProgress      protoreflect.FieldNumber = 4
	agentStatus        protoreflect.FieldNumber = 5
	agentDistinguished protoreflect.FieldNumber = 6
)

// ControlUpdate fields.
const (
	controlPace   protoreflect.FieldNumber = 1
	controlPaused protoreflect.FieldNumber = 2
	controlReset  protoreflect.FieldNumber = 3
	controlSeed   protoreflect.FieldNumber = 4
)

// Frames are marshalled in field number order.
var marshalOptions = proto.MarshalOptions{Deterministic: true}

var (
	snapshotMsg protoreflect.MessageDescriptor
	agentMsg    protoreflect.MessageDescriptor
	controlMsg  protoreflect.MessageDescriptor
)

func init() {
	file, err := protodesc.NewFile(evacFile(), new(protoregistry.Files))
	if err != nil {
		panic(fmt.Sprintf("wire: build evac.proto descriptor: %v", err))
	}
	snapshotMsg = file.Messages().ByName("Snapshot")
	agentMsg = file.Messages().ByName("Agent")
	controlMsg = file.Messages().ByName("ControlUpdate")
}

// evacFile mirrors proto/evac.proto.
func evacFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("evac.proto"),
		Package: proto.String("evac"),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Status"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("EN_ROUTE"), Number: proto.Int32(int32(sim.EnRoute))},
				{Name: proto.String("SAFE"), Number: proto.Int32(int32(sim.Safe))},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Agent"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", agentID, descriptorpb.FieldDescriptorProto_TYPE_SINT64),
					field("lat", agentLat, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
					field("lng", agentLng, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
					field("progress", agentProgress, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
					typed(field("status", agentStatus, descriptorpb.FieldDescriptorProto_TYPE_ENUM), ".evac.Status"),
					field("distinguished", agentDistinguished, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				},
			},
			{
				Name: proto.String("Snapshot"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("run_id", snapshotRunID, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("seed", snapshotSeed, descriptorpb.FieldDescriptorProto_TYPE_INT64),
					field("tick", snapshotTick, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
					field("en_route", snapshotEnRoute, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					field("safe", snapshotSafe, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					field("complete", snapshotComplete, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					field("pace", snapshotPace, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					field("paused", snapshotPaused, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					repeated(typed(field("agents", snapshotAgents, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), ".evac.Agent")),
				},
			},
			{
				Name: proto.String("ControlUpdate"),
				Field: []*descriptorpb.FieldDescriptorProto{
					optional(field("pace", controlPace, descriptorpb.FieldDescriptorProto_TYPE_UINT32), 0),
					optional(field("paused", controlPaused, descriptorpb.FieldDescriptorProto_TYPE_BOOL), 1),
					field("reset", controlReset, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					field("seed", controlSeed, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{
					{Name: proto.String("_pace")},
					{Name: proto.String("_paused")},
				},
			},
		},
	}
}

func field(name string, num protoreflect.FieldNumber, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(int32(num)),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func typed(f *descriptorpb.FieldDescriptorProto, name string) *descriptorpb.FieldDescriptorProto {
	f.TypeName = proto.String(name)
	return f
}

func repeated(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

// optional gives a proto3 field explicit presence through its synthetic
// oneof.
func optional(f *descriptorpb.FieldDescriptorProto, oneof int32) *descriptorpb.FieldDescriptorProto {
	f.Proto3Optional = proto.Bool(true)
	f.OneofIndex = proto.Int32(oneof)
	return f
}

func fieldOf(md protoreflect.MessageDescriptor, num protoreflect.FieldNumber) protoreflect.FieldDescriptor {
	return md.Fields().ByNumber(num)
}

// MarshalSnapshot encodes a snapshot frame. Agent paths are not sent.
func MarshalSnapshot(s sim.Snapshot) ([]byte, error) {
	msg := dynamicpb.NewMessage(snapshotMsg)
	msg.Set(fieldOf(snapshotMsg, snapshotRunID), protoreflect.ValueOfString(s.RunID))
	msg.Set(fieldOf(snapshotMsg, snapshotSeed), protoreflect.ValueOfInt64(s.Seed))
	msg.Set(fieldOf(snapshotMsg, snapshotTick), protoreflect.ValueOfUint64(s.Tick))
	msg.Set(fieldOf(snapshotMsg, snapshotEnRoute), protoreflect.ValueOfUint32(uint32(s.Counts.EnRoute)))
	msg.Set(fieldOf(snapshotMsg, snapshotSafe), protoreflect.ValueOfUint32(uint32(s.Counts.Safe)))
	msg.Set(fieldOf(snapshotMsg, snapshotComplete), protoreflect.ValueOfBool(s.Complete))
	msg.Set(fieldOf(snapshotMsg, snapshotPace), protoreflect.ValueOfUint32(uint32(max(s.Pace, 0))))
	msg.Set(fieldOf(snapshotMsg, snapshotPaused), protoreflect.ValueOfBool(s.Paused))

	if len(s.Agents) > 0 {
		agents := msg.Mutable(fieldOf(snapshotMsg, snapshotAgents)).List()
		for i := range s.Agents {
			elem := agents.NewElement()
			setAgent(elem.Message(), &s.Agents[i])
			agents.Append(elem)
		}
	}

	b, err := marshalOptions.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func setAgent(m protoreflect.Message, a *sim.Agent) {
	m.Set(fieldOf(agentMsg, agentID), protoreflect.ValueOfInt64(int64(a.ID)))
	m.Set(fieldOf(agentMsg, agentLat), protoreflect.ValueOfFloat64(a.Position.Lat))
	m.Set(fieldOf(agentMsg, agentLng), protoreflect.ValueOfFloat64(a.Position.Lng))
	m.Set(fieldOf(agentMsg, agentProgress), protoreflect.ValueOfFloat64(a.Progress))
	m.Set(fieldOf(agentMsg, agentStatus), protoreflect.ValueOfEnum(protoreflect.EnumNumber(a.Status)))
	m.Set(fieldOf(agentMsg, agentDistinguished), protoreflect.ValueOfBool(a.Distinguished))
}

// UnmarshalSnapshot decodes a snapshot frame. Decoded agents carry
// position, progress and status but no path.
func UnmarshalSnapshot(b []byte) (sim.Snapshot, error) {
	msg := dynamicpb.NewMessage(snapshotMsg)
	if err := proto.Unmarshal(b, msg); err != nil {
		return sim.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	s := sim.Snapshot{
		RunID: msg.Get(fieldOf(snapshotMsg, snapshotRunID)).String(),
		Seed:  msg.Get(fieldOf(snapshotMsg, snapshotSeed)).Int(),
		Tick:  msg.Get(fieldOf(snapshotMsg, snapshotTick)).Uint(),
		Counts: sim.Counts{
			EnRoute: int(msg.Get(fieldOf(snapshotMsg, snapshotEnRoute)).Uint()),
			Safe:    int(msg.Get(fieldOf(snapshotMsg, snapshotSafe)).Uint()),
		},
		Complete: msg.Get(fieldOf(snapshotMsg, snapshotComplete)).Bool(),
		Pace:     int(msg.Get(fieldOf(snapshotMsg, snapshotPace)).Uint()),
		Paused:   msg.Get(fieldOf(snapshotMsg, snapshotPaused)).Bool(),
	}

	agents := msg.Get(fieldOf(snapshotMsg, snapshotAgents)).List()
	if n := agents.Len(); n > 0 {
		s.Agents = make([]sim.Agent, n)
		for i := range s.Agents {
			s.Agents[i] = getAgent(agents.Get(i).Message())
		}
	}
	return s, nil
}

func getAgent(m protoreflect.Message) sim.Agent {
	var a sim.Agent
	a.ID = int(m.Get(fieldOf(agentMsg, agentID)).Int())
	a.Position.Lat = m.Get(fieldOf(agentMsg, agentLat)).Float()
	a.Position.Lng = m.Get(fieldOf(agentMsg, agentLng)).Float()
	a.Progress = m.Get(fieldOf(agentMsg, agentProgress)).Float()
	a.Status = sim.Status(m.Get(fieldOf(agentMsg, agentStatus)).Enum())
	a.Distinguished = m.Get(fieldOf(agentMsg, agentDistinguished)).Bool()
	return a
}

// MarshalControl encodes a control update frame. Pace is clamped to
// [0, sim.MaxPace].
func MarshalControl(c sim.ControlSettings) ([]byte, error) {
	msg := dynamicpb.NewMessage(controlMsg)
	if c.Pace != nil {
		pace := min(max(*c.Pace, 0), sim.MaxPace)
		msg.Set(fieldOf(controlMsg, controlPace), protoreflect.ValueOfUint32(uint32(pace)))
	}
	if c.Paused != nil {
		msg.Set(fieldOf(controlMsg, controlPaused), protoreflect.ValueOfBool(*c.Paused))
	}
	msg.Set(fieldOf(controlMsg, controlReset), protoreflect.ValueOfBool(c.Reset))
	msg.Set(fieldOf(controlMsg, controlSeed), protoreflect.ValueOfInt64(c.Seed))

	b, err := marshalOptions.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode control update: %w", err)
	}
	return b, nil
}

// UnmarshalControl decodes a control update frame. Absent pace and paused
// fields stay nil.
func UnmarshalControl(b []byte) (sim.ControlSettings, error) {
	msg := dynamicpb.NewMessage(controlMsg)
	if err := proto.Unmarshal(b, msg); err != nil {
		return sim.ControlSettings{}, fmt.Errorf("decode control update: %w", err)
	}

	c := sim.ControlSettings{
		Reset: msg.Get(fieldOf(controlMsg, controlReset)).Bool(),
		Seed:  msg.Get(fieldOf(controlMsg, controlSeed)).Int(),
	}
	if fd := fieldOf(controlMsg, controlPace); msg.Has(fd) {
		pace := int(min(msg.Get(fd).Uint(), uint64(sim.MaxPace)))
		c.Pace = &pace
	}
	if fd := fieldOf(controlMsg, controlPaused); msg.Has(fd) {
		paused := msg.Get(fd).Bool()
		c.Paused = &paused
	}
	return c, nil
}
