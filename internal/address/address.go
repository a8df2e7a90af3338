// Package address normalises free-text street addresses before they are
// matched against cadastral address registers.
package address

import "strings"

type abbrev struct{ short, long string }

// Registry data spells street types in full. Pairs are applied in order.
var remoteAbbrevs = []abbrev{
	{" St ", " Street "}, {" St,", " Street,"},
	{" Rd ", " Road "}, {" Rd,", " Road,"},
	{" Ave ", " Avenue "}, {" Ave,", " Avenue,"},
	{" Dr ", " Drive "}, {" Dr,", " Drive,"},
	{" Ct ", " Court "}, {" Ct,", " Court,"},
	{" Pl ", " Place "}, {" Pl,", " Place,"},
	{" Cres ", " Crescent "}, {" Cres,", " Crescent,"},
	{" Tce ", " Terrace "},
	{" Ln ", " Lane "},
	{" Pde ", " Parade "},
	{" Blvd ", " Boulevard "},
	{" Hwy ", " Highway "},
	{" Cct ", " Circuit "},
	{" Esp ", " Esplanade "},
	{" Cl ", " Close "},
	{" Gr ", " Grove "},
	{" Way ", " Way "},
}

// The local index stores comma-free addresses.
var localAbbrevs = []abbrev{
	{" St ", " Street "},
	{" Rd ", " Road "},
	{" Ave ", " Avenue "},
	{" Dr ", " Drive "},
	{" Ct ", " Court "},
	{" Pl ", " Place "},
	{" Cres ", " Crescent "},
	{" Tce ", " Terrace "},
	{" Ln ", " Lane "},
	{" Pde ", " Parade "},
	{" Blvd ", " Boulevard "},
	{" Hwy ", " Highway "},
	{" Cct ", " Circuit "},
	{" Esp ", " Esplanade "},
	{" Cl ", " Close "},
}

func expand(text string, table []abbrev) string {
	t := text + " "
	for _, a := range table {
		t = strings.ReplaceAll(t, a.short, a.long)
	}
	return strings.TrimSpace(t)
}

// Expand rewrites street-type abbreviations the way the state address
// register spells them, e.g. "12 Smith St, Buderim" -> "12 Smith Street, Buderim".
func Expand(text string) string {
	return expand(text, remoteAbbrevs)
}

// ExpandLocal is Expand for the local address index.
func ExpandLocal(text string) string {
	return expand(text, localAbbrevs)
}

// EscapeLiteral doubles single quotes for use inside an ArcGIS where clause.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
