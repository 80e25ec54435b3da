package parquetw

import (
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// CloseFunc finalizes a writer: flushes the parquet footer, then the file.
type CloseFunc func() error

// NewLocalParquetWriter creates a file-backed parquet writer for schema type
// T. The caller owns the file at path; it is not removed on close.
func NewLocalParquetWriter[T any](path string, parallel int64, compression string) (*writer.ParquetWriter, CloseFunc, error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, nil, err
	}

	pw, err := writer.NewParquetWriter(fw, new(T), parallel)
	if err != nil {
		_ = fw.Close()
		return nil, nil, err
	}

	switch compression {
	case "ZSTD":
		pw.CompressionType = parquet.CompressionCodec_ZSTD
	case "GZIP":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	}

	closeFn := func() error {
		if err := pw.WriteStop(); err != nil {
			_ = fw.Close()
			return err
		}
		return fw.Close()
	}

	return pw, closeFn, nil
}
