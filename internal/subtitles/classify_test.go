package subtitles

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want Kind
	}{
		{"WEBVTT\n", KindHeader},
		{"WEBVTT - Kind: captions\n", KindHeader},
		{"\n", KindBlank},
		{"   \t\n", KindBlank},
		{"", KindBlank},
		{"1\n", KindCueIndex},
		{"  42  \n", KindCueIndex},
		{"00:00:01.000 --> 00:00:02.000\n", KindTiming},
		{"00:00:01,000 --> 00:00:02,000 position:10%\n", KindTiming},
		{"Привет\n", KindText},
		{"1984 год\n", KindText},
		{"-12\n", KindText},
		{"webvtt in lowercase\n", KindText},
		{"<i>Hello</i>\n", KindText},
	}
	for _, tt := range tests {
		if got := Classify(tt.line); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.line, got, tt.want)
		}
	}
}

func TestIsTranslatable(t *testing.T) {
	if !IsTranslatable("Привет\n") {
		t.Fatal("expected dialogue to be translatable")
	}
	for _, line := range []string{"WEBVTT\n", "\n", "7\n", "00:00:01.000 --> 00:00:02.000\n"} {
		if IsTranslatable(line) {
			t.Fatalf("expected %q to be skipped", line)
		}
	}
}
