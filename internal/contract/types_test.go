package contract

import "testing"

func TestShapeDescriptorEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *ShapeDescriptor
		want bool
	}{
		{
			name: "both nil",
			want: true,
		},
		{
			name: "nil vs non-nil",
			a:    &ShapeDescriptor{Kind: ShapeSingle},
			want: false,
		},
		{
			name: "single vs single",
			a:    &ShapeDescriptor{Kind: ShapeSingle},
			b:    &ShapeDescriptor{Kind: ShapeSingle},
			want: true,
		},
		{
			name: "positional arity match",
			a:    &ShapeDescriptor{Kind: ShapePositional, Arity: 2},
			b:    &ShapeDescriptor{Kind: ShapePositional, Arity: 2},
			want: true,
		},
		{
			name: "positional arity mismatch",
			a:    &ShapeDescriptor{Kind: ShapePositional, Arity: 2},
			b:    &ShapeDescriptor{Kind: ShapePositional, Arity: 3},
			want: false,
		},
		{
			name: "destructured field order ignored",
			a:    &ShapeDescriptor{Kind: ShapeDestructured, Fields: []string{"title", "priority"}},
			b:    &ShapeDescriptor{Kind: ShapeDestructured, Fields: []string{"priority", "title"}},
			want: true,
		},
		{
			name: "destructured field set mismatch",
			a:    &ShapeDescriptor{Kind: ShapeDestructured, Fields: []string{"title"}},
			b:    &ShapeDescriptor{Kind: ShapeDestructured, Fields: []string{"title", "priority"}},
			want: false,
		},
		{
			name: "kind mismatch",
			a:    &ShapeDescriptor{Kind: ShapeSingle},
			b:    &ShapeDescriptor{Kind: ShapePositional, Arity: 1},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripSelector(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#task-list", "task-list"},
		{".hidden", "hidden"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripSelector(tt.in); got != tt.want {
			t.Errorf("StripSelector(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShapeDescriptorValid(t *testing.T) {
	tests := []struct {
		name  string
		shape *ShapeDescriptor
		want  bool
	}{
		{name: "nil is valid", want: true},
		{name: "single", shape: &ShapeDescriptor{Kind: ShapeSingle}, want: true},
		{name: "positional", shape: &ShapeDescriptor{Kind: ShapePositional, Arity: 2}, want: true},
		{name: "positional with fields", shape: &ShapeDescriptor{Kind: ShapePositional, Arity: 1, Fields: []string{"x"}}, want: false},
		{name: "destructured without fields", shape: &ShapeDescriptor{Kind: ShapeDestructured}, want: false},
		{name: "unknown kind", shape: &ShapeDescriptor{Kind: "tuple"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
