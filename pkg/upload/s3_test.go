package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/droneops/loglift/pkg/config"
)

func TestBatchKey(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		taskID    string
		localPath string
		want      string
	}{
		{
			name:      "default prefix",
			prefix:    "logs",
			taskID:    "task-42",
			localPath: "/var/log/ardupilot/00000042.bin",
			want:      "logs/task-42.bin",
		},
		{
			name:      "extension lowered",
			prefix:    "logs",
			taskID:    "task-42",
			localPath: "/media/pi/PIXHAWK/logs/FLIGHT.BIN",
			want:      "logs/task-42.bin",
		},
		{
			name:      "empty prefix",
			prefix:    "",
			taskID:    "t1",
			localPath: "a.bin",
			want:      "t1.bin",
		},
		{
			name:      "trailing slash stripped",
			prefix:    "missions/logs/",
			taskID:    "t1",
			localPath: "a.bin",
			want:      "missions/logs/t1.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BatchKey(tt.prefix, tt.taskID, tt.localPath))
		})
	}
}

func TestFormKey(t *testing.T) {
	tests := []struct {
		name     string
		taskID   string
		filename string
		want     string
	}{
		{
			name:     "plain filename",
			taskID:   "task-7",
			filename: "00000042.bin",
			want:     "logs/task-7_00000042.bin",
		},
		{
			name:     "path components stripped",
			taskID:   "task-7",
			filename: "../../etc/passwd",
			want:     "logs/task-7_passwd",
		},
		{
			name:     "windows path stripped",
			taskID:   "task-7",
			filename: `C:\logs\flight.bin`,
			want:     "logs/task-7_flight.bin",
		},
		{
			name:     "spaces replaced",
			taskID:   "task-7",
			filename: "my flight log.bin",
			want:     "logs/task-7_my_flight_log.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormKey("logs", tt.taskID, tt.filename))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "flight.bin", want: "flight.bin"},
		{name: "empty", in: "", want: "upload"},
		{name: "dot dot", in: "..", want: "upload"},
		{name: "control chars", in: "a\x00b.bin", want: "a_b.bin"},
		{name: "nested path", in: "logs/2024/flight.bin", want: "flight.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestObjectURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.S3Config
		key  string
		want string
	}{
		{
			name: "aws virtual hosted",
			cfg:  config.S3Config{Bucket: "flight-logs", Region: "eu-west-1"},
			key:  "logs/task-1.bin",
			want: "https://flight-logs.s3.eu-west-1.amazonaws.com/logs/task-1.bin",
		},
		{
			name: "aws default region",
			cfg:  config.S3Config{Bucket: "flight-logs"},
			key:  "logs/task-1.bin",
			want: "https://flight-logs.s3.us-east-1.amazonaws.com/logs/task-1.bin",
		},
		{
			name: "custom endpoint path style",
			cfg: config.S3Config{
				Bucket:      "flight-logs",
				EndpointURL: "http://minio.local:9000/",
			},
			key:  "logs/task-1.bin",
			want: "http://minio.local:9000/flight-logs/logs/task-1.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &s3Uploader{cfg: &tt.cfg}
			assert.Equal(t, tt.want, u.objectURL(tt.key))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantPrefix string
	}{
		{
			name:       "bin file",
			path:       "logs/00000042.bin",
			wantPrefix: "application/octet-stream",
		},
		{
			name:       "no extension",
			path:       "logs/Makefile",
			wantPrefix: "application/octet-stream",
		},
		{
			name:       "text file",
			path:       "logs/notes.txt",
			wantPrefix: "text/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectContentType(tt.path)
			assert.Contains(t, got, tt.wantPrefix)
		})
	}
}
