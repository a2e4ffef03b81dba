package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/component"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

const sampleBOM = `{
	"bomFormat": "CycloneDX",
	"specVersion": "1.5",
	"components": [
		{
			"type": "library",
			"name": "lodash",
			"version": "4.17.21",
			"purl": "pkg:npm/lodash@4.17.21",
			"licenses": [{"license": {"id": "MIT"}}]
		},
		{
			"type": "library",
			"name": "left-pad",
			"version": "1.3.0",
			"licenses": [{"license": {"name": "WTFPL"}}]
		},
		{
			"type": "operating-system",
			"name": "alpine",
			"version": "3.19"
		}
	]
}`

func newSBOMComponent(t *testing.T, releaseID shared.ID, name, version, purl string) *component.Component {
	t.Helper()
	c, err := component.New(releaseID, name, version, component.TypeLibrary, purl, "MIT")
	require.NoError(t, err)
	return c
}

func TestDigest_FirstDocumentCreatesEverything(t *testing.T) {
	components := new(mockComponentRepo)
	releases := new(mockReleaseRepo)
	releaseID := shared.NewID()

	components.On("ListActive", mock.Anything, releaseID).Return([]*component.Component{}, nil)
	components.On("CreateBatch", mock.Anything, mock.MatchedBy(func(cs []*component.Component) bool {
		return len(cs) == 3
	})).Return(nil)

	svc := NewSBOMService(components, releases, nil, nil, logger.NewNop())
	result, err := svc.Digest(context.Background(), releaseID, []byte(sampleBOM))
	require.NoError(t, err)

	assert.Equal(t, DigestResult{New: 3, Removed: 0, Unchanged: 0}, result)
	components.AssertNotCalled(t, "UpdateStatusBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestDigest_ThreeWayDiff(t *testing.T) {
	components := new(mockComponentRepo)
	releases := new(mockReleaseRepo)
	releaseID := shared.NewID()

	kept := newSBOMComponent(t, releaseID, "lodash", "4.17.21", "pkg:npm/lodash@4.17.21")
	dropped := newSBOMComponent(t, releaseID, "request", "2.88.2", "pkg:npm/request@2.88.2")

	components.On("ListActive", mock.Anything, releaseID).
		Return([]*component.Component{kept, dropped}, nil)
	components.On("CreateBatch", mock.Anything, mock.MatchedBy(func(cs []*component.Component) bool {
		return len(cs) == 2
	})).Return(nil)
	components.On("UpdateStatusBatch", mock.Anything, []shared.ID{kept.ID()}, component.ChangeUnchanged).Return(nil)
	components.On("UpdateStatusBatch", mock.Anything, []shared.ID{dropped.ID()}, component.ChangeRemoved).Return(nil)

	svc := NewSBOMService(components, releases, nil, nil, logger.NewNop())
	result, err := svc.Digest(context.Background(), releaseID, []byte(sampleBOM))
	require.NoError(t, err)

	assert.Equal(t, DigestResult{New: 2, Removed: 1, Unchanged: 1}, result)
	components.AssertExpectations(t)
}

func TestDigest_MalformedDocument(t *testing.T) {
	svc := NewSBOMService(new(mockComponentRepo), new(mockReleaseRepo), nil, nil, logger.NewNop())
	_, err := svc.Digest(context.Background(), shared.NewID(), []byte("not json"))
	assert.Error(t, err)
}

func TestDigest_LicenseFallsBackToName(t *testing.T) {
	c := cycloneDXComponent{
		Licenses: []cycloneDXLicenseChoice{{License: &cycloneDXLicense{Name: "WTFPL"}}},
	}
	assert.Equal(t, "WTFPL", c.license())

	c = cycloneDXComponent{
		Licenses: []cycloneDXLicenseChoice{{License: &cycloneDXLicense{ID: "MIT", Name: "ignored"}}},
	}
	assert.Equal(t, "MIT", c.license())

	assert.Empty(t, cycloneDXComponent{}.license())
}

func TestExport_RoundTrip(t *testing.T) {
	components := new(mockComponentRepo)
	releases := new(mockReleaseRepo)

	rel := release.Reconstitute(shared.NewID(), shared.NewID(), "2024.12", "f00dcafe", time.Now())
	lib := newSBOMComponent(t, rel.ID(), "lodash", "4.17.21", "pkg:npm/lodash@4.17.21")

	releases.On("GetByID", mock.Anything, rel.ID()).Return(rel, nil)
	components.On("ListActive", mock.Anything, rel.ID()).Return([]*component.Component{lib}, nil)

	svc := NewSBOMService(components, releases, nil, nil, logger.NewNop())
	out, err := svc.Export(context.Background(), rel.ID())
	require.NoError(t, err)

	var doc cycloneDXDocument
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "CycloneDX", doc.BOMFormat)
	assert.Equal(t, "1.5", doc.SpecVersion)
	require.Len(t, doc.Components, 1)
	assert.Equal(t, "lodash", doc.Components[0].Name)
	assert.Equal(t, "pkg:npm/lodash@4.17.21", doc.Components[0].PURL)
	assert.Equal(t, "MIT", doc.Components[0].license())
	require.NotNil(t, doc.Metadata)
	assert.Equal(t, "2024.12", doc.Metadata.Component.Name)
}

func TestImportType(t *testing.T) {
	assert.Equal(t, component.TypeLibrary, importType("library"))
	assert.Equal(t, component.TypeContainer, importType("container"))
	assert.Equal(t, component.TypeFramework, importType("framework"))
	assert.Equal(t, component.TypeOS, importType("operating-system"))
	assert.Equal(t, component.TypeLibrary, importType("application"))
	assert.Equal(t, component.TypeLibrary, importType(""))
}
