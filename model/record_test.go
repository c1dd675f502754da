package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testRecord(reps int, kv ...any) Record {
	var fields []Field
	for i := 0; i < len(kv); i += 2 {
		fields = append(fields, Field{Name: kv[i].(string), Value: Values(kv[i+1])[0]})
	}
	return NewRecord(fields, reps)
}

func TestRecord_Identity(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{
			name:   "single field",
			record: testRecord(1, "name", "imagesize"),
			want:   "name_imagesize",
		},
		{
			name:   "mixed tokens and integers",
			record: testRecord(3, "system", "A", "size", 64),
			want:   "system_A_size_64",
		},
		{
			name:   "repetitions do not contribute",
			record: testRecord(7, "system", "A", "size", 64),
			want:   "system_A_size_64",
		},
		{
			name:   "no fields",
			record: NewRecord(nil, 1),
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.record.Identity())
		})
	}
}

func TestRecord_SameConfiguration(t *testing.T) {
	a := testRecord(1, "system", "A", "size", 64)
	b := testRecord(5, "system", "A", "size", 64)
	c := testRecord(1, "system", "B", "size", 64)

	require.True(t, a.SameConfiguration(b))
	require.False(t, a.SameConfiguration(c))
	require.False(t, a.SameConfiguration(testRecord(1, "system", "A")))
}

func TestRecord_Immutable(t *testing.T) {
	fields := []Field{{Name: "size", Value: Int(64)}}
	r := NewRecord(fields, 1)
	fields[0].Value = Int(1500)

	got := r.Fields()
	got[0].Value = Int(9000)

	require.Equal(t, int64(64), r.Int("size"))
}

func TestRecord_GetAndKey(t *testing.T) {
	r := testRecord(2, "system", "A", "size", 1500)

	v, ok := r.Get("repetitions")
	require.True(t, ok)
	require.Equal(t, Int(2), v)
	require.Equal(t, "A", r.Str("system"))
	require.Equal(t, int64(1500), r.Int("size"))
	require.Equal(t, "", r.Str("missing"))

	key, err := r.Key([]string{"size", "system"})
	require.NoError(t, err)
	require.Equal(t, Values(1500, "A"), key)

	_, err = r.Key([]string{"interface"})
	require.Error(t, err)
	require.True(t, IsConfigError(err))
}

func TestRuns(t *testing.T) {
	records := []Record{
		testRecord(2, "system", "A"),
		testRecord(1, "system", "B"),
	}
	runs := Runs(records)
	require.Len(t, runs, 3)
	require.Equal(t, "A", runs[0].Record.Str("system"))
	require.Equal(t, 0, runs[0].Repetition)
	require.Equal(t, 1, runs[1].Repetition)
	require.Equal(t, "B", runs[2].Record.Str("system"))

	v, ok := runs[2].Get("system")
	require.True(t, ok)
	require.Equal(t, String("B"), v)
}

func TestMatrixString(t *testing.T) {
	records := []Record{
		testRecord(1, "interface", "vfio", "size", 64),
		testRecord(1, "interface", "bridge", "size", 64),
		testRecord(1, "interface", "vfio", "size", 1500),
	}
	require.Equal(t, "interface=[vfio bridge] size=[64 1500]", MatrixString(records))
	require.Equal(t, "(empty)", MatrixString(nil))
}

func TestMatrix_Repetitions(t *testing.T) {
	tests := []struct {
		name    string
		matrix  Matrix
		want    int
		wantErr bool
	}{
		{
			name:   "single count",
			matrix: NewMatrix(Dimension{Name: "repetitions", Values: Values(3)}),
			want:   3,
		},
		{
			name:    "missing",
			matrix:  NewMatrix(Dimension{Name: "size", Values: Values(64)}),
			wantErr: true,
		},
		{
			name:    "zero",
			matrix:  NewMatrix(Dimension{Name: "repetitions", Values: Values(0)}),
			wantErr: true,
		},
		{
			name:    "several counts",
			matrix:  NewMatrix(Dimension{Name: "repetitions", Values: Values(1, 3)}),
			wantErr: true,
		},
		{
			name:    "not an integer",
			matrix:  NewMatrix(Dimension{Name: "repetitions", Values: Values("three")}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.matrix.Repetitions()
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMatrix_Validate(t *testing.T) {
	reps := Dimension{Name: "repetitions", Values: Values(1)}

	require.NoError(t, NewMatrix(reps, Dimension{Name: "num_vms", Values: Values(1, 2)}).Validate())
	require.Error(t, NewMatrix(reps, Dimension{Name: "", Values: Values(1)}).Validate())
	require.Error(t, NewMatrix(reps, reps).Validate())
	require.Error(t, NewMatrix(reps, Dimension{Name: "vnf", Values: Values("a/b")}).Validate())
	require.Error(t, NewMatrix(reps, Dimension{Name: "vnf", Values: Values("")}).Validate())

	for name, values := range map[string][]Value{
		"repeated token":       Values("A", "A"),
		"repeated integer":     Values(64, 64),
		"integer and its text": Values(64, "64"),
	} {
		err := NewMatrix(reps, Dimension{Name: "size", Values: values}).Validate()
		require.True(t, IsConfigError(err), "%s: %v", name, err)
		require.ErrorContains(t, err, "listed twice", name)
	}
}

func TestParseValue(t *testing.T) {
	require.Equal(t, Int(64), ParseValue("64"))
	require.Equal(t, Int(-1), ParseValue("-1"))
	require.Equal(t, String("vfio"), ParseValue("vfio"))
	require.Equal(t, String("1.5"), ParseValue("1.5"))
}
