package metadata

import (
	"github.com/asklar/McpExtract/errors"
)

// Assembly-level attributes read by ReadFacts.
const (
	targetFrameworkAttr      = "System.Runtime.Versioning.TargetFrameworkAttribute"
	descriptionAttr          = "System.Reflection.AssemblyDescriptionAttribute"
	companyAttr              = "System.Reflection.AssemblyCompanyAttribute"
	productAttr              = "System.Reflection.AssemblyProductAttribute"
	informationalVersionAttr = "System.Reflection.AssemblyInformationalVersionAttribute"
)

// Facts are the identity and environment facts of an assembly that can be
// read without loading anything else.
type Facts struct {
	// TargetFramework is the TargetFrameworkAttribute value, such as
	// ".NETCoreApp,Version=v8.0". Empty when absent.
	TargetFramework      string
	Description          string
	Company              string
	Product              string
	InformationalVersion string
	Assembly             AssemblyName
	References           []AssemblyName
}

// ReadFacts opens the assembly at path and reads its facts.
func ReadFacts(path string) (*Facts, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	facts, err := f.Facts()
	if err != nil {
		return nil, errors.WithPath(err, path)
	}
	return facts, nil
}

// Facts reads the assembly identity, references and string-valued
// assembly attributes of f.
func (f *File) Facts() (*Facts, error) {
	facts := &Facts{}
	asm, ok := f.Assembly()
	if !ok {
		facts.Assembly.Name = f.Module().Name
	} else {
		facts.Assembly = asm.AssemblyName
	}
	for _, ref := range f.AssemblyRefs() {
		facts.References = append(facts.References, ref.AssemblyName)
	}
	if !ok {
		return facts, nil
	}

	for _, ca := range f.CustomAttributes(NewToken(TableAssembly, 1)) {
		ctor, err := f.AttributeCtor(ca)
		if err != nil {
			return nil, err
		}
		var dst *string
		switch ctor.FullName() {
		case targetFrameworkAttr:
			dst = &facts.TargetFramework
		case descriptionAttr:
			dst = &facts.Description
		case companyAttr:
			dst = &facts.Company
		case productAttr:
			dst = &facts.Product
		case informationalVersionAttr:
			dst = &facts.InformationalVersion
		default:
			continue
		}
		blob, err := f.Blob(ca.Value)
		if err != nil {
			return nil, err
		}
		val, err := DecodeAttribute(blob, ctor.Sig, nil)
		if err != nil {
			return nil, err
		}
		if len(val.FixedArgs) > 0 {
			if s, ok := val.FixedArgs[0].(string); ok {
				*dst = s
			}
		}
	}
	return facts, nil
}
