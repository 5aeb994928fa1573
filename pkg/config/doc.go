/*
Package config defines the typed tree Clownfish's cluster configuration
decodes into and loads it from disk with gopkg.in/yaml.v3. It does not
validate cross-references or build the runtime topology — that pass,
including the first-unrecoverable-error-with-offending-key reporting,
lives in pkg/topology, which takes a *Raw as input. Keeping decode and
validate separate means a syntactically valid but semantically broken
file still decodes cleanly, so pkg/topology can point at the exact field
that's wrong instead of a YAML parse error.
*/
package config
