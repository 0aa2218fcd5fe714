// Package metadata reads ECMA-335 CLI metadata out of PE images.
//
// It implements a load-only parser for .NET assemblies: nothing is executed
// and no runtime is required. The PE container is decoded with debug/pe,
// then the CLI header, the metadata root, the #~ table stream and the
// #Strings, #Blob, #GUID and #US heaps are read into memory.
//
// # Supported Features
//
//	Containers:
//	  - PE32 and PE32+ images
//	  - Compressed (#~) and uncompressed (#-) table streams
//	  - Wide heap and table indexes
//
//	Tables:
//	  - All tables 0x00-0x2C with schema-driven row layout
//	  - Typed rows for the tables used in type and member discovery
//
//	Blobs:
//	  - Method, field, member reference and type specification signatures
//	  - Custom attribute values, including named, boxed, array and enum arguments
//	  - Constant values
//
// # Reading
//
//	f, err := metadata.Open("Tools.dll")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	for row := uint32(1); row <= f.RowCount(metadata.TableTypeDef); row++ {
//	    fmt.Println(f.TypeDefFullName(row))
//	}
//
// Assembly-level facts can be read without keeping the file open:
//
//	facts, err := metadata.ReadFacts("Tools.dll")
//	fmt.Println(facts.TargetFramework) // ".NETCoreApp,Version=v8.0"
//
// # Errors
//
// Open returns an errors.KindNotFound error for missing files. Structural
// problems are reported as errors.KindMalformedBinary with the table or heap
// being decoded.
package metadata
