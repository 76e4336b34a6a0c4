package schema

import "fmt"

// ImportAttrs are shared by every relationship of the import family.
type ImportAttrs struct {
	ImportPath    string
	IsDefault     bool
	IsNamed       bool
	IsNamespace   bool
	IsTypeOnly    bool
	ImportedNames []string
	Alias         string
	IsResolved    bool
	ResolvedPath  string
}

// PackageImportAttrs extend ImportAttrs for imports sourced from a package.
type PackageImportAttrs struct {
	ImportAttrs
	PackageName          string
	PackageVersion       string
	IsDevDependency      bool
	IsPeerDependency     bool
	IsOptionalDependency bool
}

// ExportAttrs are shared by every relationship of the export family.
// ExportedNames is ignored for EXPORTS_DEFAULT, which carries ExportedName.
type ExportAttrs struct {
	IsTypeOnly    bool
	IsNamespace   bool
	ExportedNames []string
	ExportedName  string
	SourcePath    string
	PackageName   string
}

func (a ImportAttrs) properties() Properties {
	p := Properties{
		"importPath":  a.ImportPath,
		"isDefault":   a.IsDefault,
		"isNamed":     a.IsNamed,
		"isNamespace": a.IsNamespace,
		"isTypeOnly":  a.IsTypeOnly,
		"isResolved":  a.IsResolved,
	}
	if len(a.ImportedNames) > 0 {
		p["importedNames"] = a.ImportedNames
	}
	if a.Alias != "" {
		p["alias"] = a.Alias
	}
	if a.ResolvedPath != "" {
		p["resolvedPath"] = a.ResolvedPath
	}
	return p
}

// NewImport creates a file-to-file import (IMPORTS or IMPORTS_TYPES).
func NewImport(t RelType, startNodeID, endNodeID string, attrs ImportAttrs) (*Relationship, error) {
	if !t.IsImport() || t.IsPackageImport() {
		return nil, fmt.Errorf("%w: %s is not a local import", ErrUnknownKind, t)
	}
	if t == RelImportsTypes {
		attrs.IsTypeOnly = true
	}
	return NewRelationship(t, startNodeID, endNodeID, attrs.properties())
}

// NewPackageImport creates an import sourced from a package
// (IMPORTS_FROM_PACKAGE or IMPORTS_TYPES_FROM_PACKAGE).
func NewPackageImport(t RelType, startNodeID, endNodeID string, attrs PackageImportAttrs) (*Relationship, error) {
	if !t.IsPackageImport() {
		return nil, fmt.Errorf("%w: %s is not a package import", ErrUnknownKind, t)
	}
	if t == RelImportsTypesFromPackage {
		attrs.IsTypeOnly = true
	}
	p := attrs.ImportAttrs.properties()
	p["packageName"] = attrs.PackageName
	p["isDevDependency"] = attrs.IsDevDependency
	p["isPeerDependency"] = attrs.IsPeerDependency
	p["isOptionalDependency"] = attrs.IsOptionalDependency
	if attrs.PackageVersion != "" {
		p["packageVersion"] = attrs.PackageVersion
	}
	return NewRelationship(t, startNodeID, endNodeID, p)
}

// NewExport creates a relationship of the export family.
func NewExport(t RelType, startNodeID, endNodeID string, attrs ExportAttrs) (*Relationship, error) {
	p := Properties{
		"isTypeOnly":  attrs.IsTypeOnly,
		"isNamespace": attrs.IsNamespace,
	}
	switch t {
	case RelExportsDefault:
		if attrs.ExportedName != "" {
			p["exportedName"] = attrs.ExportedName
		}
	case RelExportsLocal:
		p["exportedNames"] = nonNil(attrs.ExportedNames)
	case RelReexports, RelReexportsAll:
		p["exportedNames"] = nonNil(attrs.ExportedNames)
		p["sourcePath"] = attrs.SourcePath
	case RelReexportsFromPackage:
		p["exportedNames"] = nonNil(attrs.ExportedNames)
		p["packageName"] = attrs.PackageName
	default:
		return nil, fmt.Errorf("%w: %s is not an export", ErrUnknownKind, t)
	}
	return NewRelationship(t, startNodeID, endNodeID, p)
}

// DecodeImport recovers the typed attributes of an import-family relationship.
// Package-only fields stay zero for local imports.
func DecodeImport(r *Relationship) (PackageImportAttrs, error) {
	if !r.Type.IsImport() {
		return PackageImportAttrs{}, fmt.Errorf("%w: %s is not an import", ErrUnknownKind, r.Type)
	}
	p := r.Properties
	out := PackageImportAttrs{ImportAttrs: ImportAttrs{
		ImportPath:    p.String("importPath"),
		IsDefault:     p.Bool("isDefault"),
		IsNamed:       p.Bool("isNamed"),
		IsNamespace:   p.Bool("isNamespace"),
		IsTypeOnly:    p.Bool("isTypeOnly"),
		ImportedNames: p.Strings("importedNames"),
		Alias:         p.String("alias"),
		IsResolved:    p.Bool("isResolved"),
		ResolvedPath:  p.String("resolvedPath"),
	}}
	if r.Type.IsPackageImport() {
		out.PackageName = p.String("packageName")
		out.PackageVersion = p.String("packageVersion")
		out.IsDevDependency = p.Bool("isDevDependency")
		out.IsPeerDependency = p.Bool("isPeerDependency")
		out.IsOptionalDependency = p.Bool("isOptionalDependency")
	}
	return out, nil
}

// DecodeExport recovers the typed attributes of an export-family relationship.
func DecodeExport(r *Relationship) (ExportAttrs, error) {
	if !r.Type.IsExport() {
		return ExportAttrs{}, fmt.Errorf("%w: %s is not an export", ErrUnknownKind, r.Type)
	}
	p := r.Properties
	out := ExportAttrs{
		IsTypeOnly:  p.Bool("isTypeOnly"),
		IsNamespace: p.Bool("isNamespace"),
	}
	switch r.Type {
	case RelExportsDefault:
		out.ExportedName = p.String("exportedName")
	case RelReexportsFromPackage:
		out.ExportedNames = p.Strings("exportedNames")
		out.PackageName = p.String("packageName")
	case RelReexports, RelReexportsAll:
		out.ExportedNames = p.Strings("exportedNames")
		out.SourcePath = p.String("sourcePath")
	default:
		out.ExportedNames = p.Strings("exportedNames")
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
