// Package content validates and indexes site content and serves it from
// immutable snapshots.
//
// Raw records arrive per [Kind]: structured records (team members, products)
// as field maps, documents (blog posts) as markdown text with a front-matter
// block. A rebuild runs them through the pipeline
//
//	RawRecord -> Validator (+ frontmatter.Split) -> Build -> Store.Publish
//
// and the [Query] API reads whatever snapshot is current. Bad records are
// excluded and reported in the [BuildReport]; they never block their
// siblings. Publishing is all-or-nothing across kinds: a build that cannot
// cover every declared kind leaves the previous snapshot in place.
//
// Typical use:
//
//	engine := content.New(content.DefaultRegistry(), content.WithLogger(log))
//
//	report := engine.Rebuild(raw)
//	if report.Err != nil {
//	    return report.Err
//	}
//
//	post, ok := engine.Query().GetDocumentBySlug("hello-world")
//
// The engine performs no I/O. Loading raw content from disk lives in the
// hosting service.
package content
