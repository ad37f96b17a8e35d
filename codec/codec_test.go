package codec_test

import (
	"errors"
	"testing"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/codec"
	"github.com/xraph/itemcast/series"
)

func TestCodecs_PartitionPayload(t *testing.T) {
	part := series.Partition{
		Item: "SKU-1",
		Records: []series.Record{
			{Item: "SKU-1", Month: series.NewMonth(2021, 3), Value: 12.5},
			{Item: "SKU-1", Month: series.NewMonth(2021, 4), Value: 0},
		},
	}

	for _, name := range []string{codec.NameMsgpack, codec.NameJSON} {
		c, err := codec.ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if c.Name() != name {
			t.Fatalf("expected codec %q, got %q", name, c.Name())
		}

		data, err := c.Marshal(part)
		if err != nil {
			t.Fatalf("%s marshal: %v", name, err)
		}
		var got series.Partition
		if err := c.Unmarshal(data, &got); err != nil {
			t.Fatalf("%s unmarshal: %v", name, err)
		}
		if got.Item != part.Item || len(got.Records) != 2 || got.Records[0] != part.Records[0] {
			t.Fatalf("%s: partition changed in transit: %+v", name, got)
		}
	}
}

func TestByName_Default(t *testing.T) {
	c, err := codec.ByName("")
	if err != nil || c.Name() != codec.NameMsgpack {
		t.Fatalf("expected msgpack default, got %v %v", c, err)
	}
	if codec.Default().Name() != codec.NameMsgpack {
		t.Fatal("expected msgpack default")
	}
}

func TestByName_Unknown(t *testing.T) {
	if _, err := codec.ByName("protobuf"); !errors.Is(err, itemcast.ErrInvalidSetting) {
		t.Fatalf("expected ErrInvalidSetting, got %v", err)
	}
}
