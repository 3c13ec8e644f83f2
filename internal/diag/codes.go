package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Семантические
	SemaInfo                      Code = 3000
	SemaError                     Code = 3001
	SemaDuplicateItem             Code = 3002
	SemaUnknownType               Code = 3003
	SemaUnknownField              Code = 3004
	SemaUnknownVariant            Code = 3005
	SemaTypeArgCount              Code = 3006
	SemaPrivateItem               Code = 3007
	SemaRecursiveType             Code = 3008
	SemaNotAType                  Code = 3009
	SemaUnknownFunction           Code = 3010
	SemaPurityMismatch            Code = 3011
	SemaStorageAccess             Code = 3012
	SemaInvalidStorageAttr        Code = 3013
	SemaUnneededStorageAnnotation Code = 3014
	SemaDuplicateMember           Code = 3015
	SemaDuplicateMethod           Code = 3016

	// Проектные
	ProjInfo              Code = 5000
	ProjManifest          Code = 5001
	ProjDeclFile          Code = 5002
	ProjTypeExpr          Code = 5003
	ProjDependencyCycle   Code = 5004
	ProjMissingDependency Code = 5005
	ProjDuplicatePackage  Code = 5006
	ProjSelfDependency    Code = 5007
	ProjDependencyFailed  Code = 5008
)

var codeDescription = map[Code]string{
	UnknownCode:                   "Unknown error",
	SemaInfo:                      "Semantic information",
	SemaError:                     "Semantic error",
	SemaDuplicateItem:             "Duplicate item",
	SemaUnknownType:               "Unknown type",
	SemaUnknownField:              "Unknown field",
	SemaUnknownVariant:            "Unknown enum variant",
	SemaTypeArgCount:              "Wrong number of type arguments",
	SemaPrivateItem:               "Item is private",
	SemaRecursiveType:             "Recursive type contains itself by value",
	SemaNotAType:                  "Name does not refer to a type",
	SemaUnknownFunction:           "Unknown function",
	SemaPurityMismatch:            "Call violates storage purity",
	SemaStorageAccess:             "Storage access not declared",
	SemaInvalidStorageAttr:        "Invalid storage annotation",
	SemaUnneededStorageAnnotation: "Unneeded storage annotation",
	SemaDuplicateMember:           "Duplicate field or variant",
	SemaDuplicateMethod:           "Duplicate method",
	ProjInfo:                      "Project information",
	ProjManifest:                  "Invalid project manifest",
	ProjDeclFile:                  "Invalid declaration file",
	ProjTypeExpr:                  "Invalid type expression",
	ProjDependencyCycle:           "Dependency cycle",
	ProjMissingDependency:         "Missing dependency",
	ProjDuplicatePackage:          "Duplicate package name",
	ProjSelfDependency:            "Package depends on itself",
	ProjDependencyFailed:          "Dependency has errors",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
