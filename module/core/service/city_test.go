package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

var bandung = domain.City{ID: "bdg", Name: "Bandung", Country: "Indonesia"}

func fixedPlace(city, country string) *mockGeocoder {
	return &mockGeocoder{
		reverse: func(_ context.Context, _ domain.Coordinate) (*domain.Place, error) {
			return &domain.Place{City: city, Country: country}, nil
		},
	}
}

func newCityDetector(gc *mockGeocoder, manifest *mockManifest, disp *mockDispatcher) *CityDetector {
	return NewCityDetector(CityDetectorConfig{
		Cooldown:       5 * time.Minute,
		DistanceMeters: 5000,
	}, gc, manifest, disp, zap.NewNop())
}

func TestCityDetector_TimeGate(t *testing.T) {
	gc := fixedPlace("Jakarta", "Indonesia")
	d := newCityDetector(gc, &mockManifest{}, &mockDispatcher{})

	assert.True(t, d.OnLocationSample(context.Background(), 0, jakarta, t0))
	for i := 1; i <= 10; i++ {
		// far enough to pass the distance gate every time
		pos := offset(jakarta, float64(i)*10000, 0)
		assert.False(t, d.OnLocationSample(context.Background(), 0, pos, t0.Add(time.Duration(i)*20*time.Second)))
	}
	d.Wait()

	assert.Equal(t, 1, gc.count())
}

func TestCityDetector_DistanceGate(t *testing.T) {
	gc := fixedPlace("Jakarta", "Indonesia")
	d := newCityDetector(gc, &mockManifest{}, &mockDispatcher{})

	require.True(t, d.OnLocationSample(context.Background(), 0, jakarta, t0))
	// cooldown elapsed but still within 5 km
	assert.False(t, d.OnLocationSample(context.Background(), 0, offset(jakarta, 4000, 0), t0.Add(10*time.Minute)))
	assert.False(t, d.OnLocationSample(context.Background(), 0, offset(jakarta, 0, 4900), t0.Add(20*time.Minute)))
	// both gates pass
	assert.True(t, d.OnLocationSample(context.Background(), 0, offset(jakarta, 6000, 0), t0.Add(30*time.Minute)))
	d.Wait()

	assert.Equal(t, 2, gc.count())
	st := d.State()
	require.NotNil(t, st.LastGeocodedLocation)
	assert.InDelta(t, 6000, Distance(jakarta, *st.LastGeocodedLocation), 1)
	assert.Equal(t, t0.Add(30*time.Minute), st.LastGeocodeAttemptAt)
}

func TestCityDetector_CityAvailableNotDownloaded(t *testing.T) {
	disp := &mockDispatcher{}
	manifest := &mockManifest{cities: []domain.City{bandung}}
	d := newCityDetector(fixedPlace("BANDUNG", "indonesia"), manifest, disp)

	d.OnLocationSample(context.Background(), 0, jakarta, t0)
	d.Wait()

	sent := disp.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.NotificationCityAvailable, sent[0].Kind)
	assert.Equal(t, "bdg", sent[0].Metadata["city_id"])
	assert.Equal(t, "Bandung", sent[0].Metadata["city_name"])
	st := d.State()
	assert.Equal(t, "BANDUNG", st.LastCityName)
	assert.Equal(t, "indonesia", st.LastCountryName)
}

func TestCityDetector_SwitchPrompt(t *testing.T) {
	disp := &mockDispatcher{}
	manifest := &mockManifest{
		cities:     []domain.City{bandung},
		downloaded: map[string]bool{"bdg": true},
	}
	d := newCityDetector(fixedPlace("Bandung", "Indonesia"), manifest, disp)

	d.OnLocationSample(context.Background(), 0, jakarta, t0)
	d.Wait()

	sent := disp.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.NotificationCitySwitch, sent[0].Kind)
	assert.Contains(t, sent[0].Body, "Bandung")
}

func TestCityDetector_AlreadyActive(t *testing.T) {
	disp := &mockDispatcher{}
	manifest := &mockManifest{
		cities:     []domain.City{bandung},
		downloaded: map[string]bool{"bdg": true},
		active:     map[string]bool{"bdg": true},
	}
	d := newCityDetector(fixedPlace("Bandung", "Indonesia"), manifest, disp)

	d.OnLocationSample(context.Background(), 0, jakarta, t0)
	d.Wait()

	assert.Empty(t, disp.sent())
}

func TestCityDetector_NoManifestMatch(t *testing.T) {
	disp := &mockDispatcher{}
	manifest := &mockManifest{cities: []domain.City{bandung}}
	d := newCityDetector(fixedPlace("Bandung", "Ecuador"), manifest, disp)

	d.OnLocationSample(context.Background(), 0, jakarta, t0)
	d.Wait()

	assert.Empty(t, disp.sent())
	assert.Equal(t, "Bandung", d.State().LastCityName)
}

func TestCityDetector_SameCityTwiceIsQuiet(t *testing.T) {
	disp := &mockDispatcher{}
	manifest := &mockManifest{cities: []domain.City{bandung}}
	d := newCityDetector(fixedPlace("Bandung", "Indonesia"), manifest, disp)

	d.OnLocationSample(context.Background(), 0, jakarta, t0)
	d.Wait()
	d.OnLocationSample(context.Background(), 0, offset(jakarta, 20000, 0), t0.Add(time.Hour))
	d.Wait()

	assert.Len(t, disp.sent(), 1)
}

func TestCityDetector_GeocodeFailure(t *testing.T) {
	disp := &mockDispatcher{}
	gc := &mockGeocoder{
		reverse: func(_ context.Context, _ domain.Coordinate) (*domain.Place, error) {
			return nil, errors.New("nominatim down")
		},
	}
	d := newCityDetector(gc, &mockManifest{cities: []domain.City{bandung}}, disp)

	assert.True(t, d.OnLocationSample(context.Background(), 0, jakarta, t0))
	d.Wait()

	assert.Empty(t, disp.sent())
	assert.Empty(t, d.State().LastCityName)
	// the failed attempt still counts against the cooldown
	assert.False(t, d.OnLocationSample(context.Background(), 0, offset(jakarta, 20000, 0), t0.Add(time.Minute)))
}

func TestCityDetector_ResetDiscardsInflightResult(t *testing.T) {
	disp := &mockDispatcher{}
	release := make(chan struct{})
	gc := &mockGeocoder{
		reverse: func(_ context.Context, _ domain.Coordinate) (*domain.Place, error) {
			<-release
			return &domain.Place{City: "Bandung", Country: "Indonesia"}, nil
		},
	}
	d := newCityDetector(gc, &mockManifest{cities: []domain.City{bandung}}, disp)

	require.True(t, d.OnLocationSample(context.Background(), 0, jakarta, t0))
	d.Reset(1)
	close(release)
	d.Wait()

	assert.Empty(t, disp.sent())
	assert.Empty(t, d.State().LastCityName)
	assert.Nil(t, d.State().LastGeocodedLocation)
}

func TestCityDetector_IgnoresSampleFromEndedSession(t *testing.T) {
	gc := fixedPlace("Bandung", "Indonesia")
	d := newCityDetector(gc, &mockManifest{}, &mockDispatcher{})
	d.Reset(2)

	assert.False(t, d.OnLocationSample(context.Background(), 1, jakarta, t0))
	assert.True(t, d.State().LastGeocodeAttemptAt.IsZero())
	assert.Nil(t, d.State().LastGeocodedLocation)

	assert.True(t, d.OnLocationSample(context.Background(), 2, jakarta, t0))
	d.Wait()
	assert.Equal(t, 1, gc.count())
}

func TestCityDetector_DoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	gc := &mockGeocoder{
		reverse: func(_ context.Context, _ domain.Coordinate) (*domain.Place, error) {
			<-release
			return nil, errors.New("late")
		},
	}
	d := newCityDetector(gc, &mockManifest{}, &mockDispatcher{})

	done := make(chan struct{})
	go func() {
		d.OnLocationSample(context.Background(), 0, jakarta, t0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnLocationSample blocked on the geocoder")
	}
	close(release)
	d.Wait()
}

func TestSameName(t *testing.T) {
	assert.True(t, sameName("São Paulo", "SÃO PAULO"))
	assert.False(t, sameName("Paris", "Parisa"))
}
