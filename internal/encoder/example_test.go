package encoder_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jittakal/onebrc/internal/encoder"
	"github.com/jittakal/onebrc/pkg/station"
)

func exampleTable() station.Table {
	return station.Table{
		"Hamburg":  {Name: "Hamburg", Min: 82, Max: 120, Sum: 202, Count: 2},
		"Bulawayo": {Name: "Bulawayo", Min: 89, Max: 89, Sum: 89, Count: 1},
	}
}

func Example_textEncoder() {
	enc := encoder.NewTextEncoder()
	if err := enc.EncodeTo(os.Stdout, exampleTable().Sorted()); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// {Bulawayo=8.9/8.9/8.9, Hamburg=8.2/10.1/12.0}
}

func Example_parquetEncoder() {
	enc := encoder.NewParquetEncoder("snappy")

	dir, err := os.MkdirTemp("", "onebrc-example")
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer os.RemoveAll(dir)

	stats, err := enc.Encode(filepath.Join(dir, "result"+enc.FileExtension()), exampleTable().Sorted())
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("Encoded %d rows\n", stats.RecordCount)
	fmt.Printf("File format: %s\n", enc.Format())

	// Output:
	// Encoded 2 rows
	// File format: parquet
}

func Example_encoderFactory() {
	for _, format := range encoder.SupportedFormats() {
		enc, err := encoder.NewFactory(format, "").CreateEncoder()
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Printf("%s -> %s\n", enc.Format(), enc.FileExtension())
	}

	// Output:
	// text -> .txt
	// parquet -> .parquet
	// avro -> .avro.gz
}
