package pod_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mock_pod "github.com/Ratio1/pod_sdk_go/internal/mock/pod"
	"github.com/Ratio1/pod_sdk_go/pkg/pod"
	"github.com/Ratio1/pod_sdk_go/pkg/pod/mock"
)

const testPodURL = "http://pod.test/alice/"

// newMockPod returns an in-memory pod mounted where testPodURL points.
func newMockPod(opts ...mock.Option) *mock.Pod {
	return mock.New(append([]mock.Option{mock.WithRoot("/alice/")}, opts...)...)
}

func TestEnsureContainerSkipsExisting(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mock_pod.NewMockTransport(ctrl)
	transport.EXPECT().
		Probe(gomock.Any(), testPodURL+"notes/").
		Return(true).
		Times(1)
	transport.EXPECT().
		Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Times(0)

	client := pod.NewWithTransport(pod.MustParseRef(testPodURL), transport)
	require.NoError(t, client.EnsureContainer(context.Background(), "notes"))
}

func TestEnsureContainerCreatesMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mock_pod.NewMockTransport(ctrl)
	gomock.InOrder(
		transport.EXPECT().
			Probe(gomock.Any(), testPodURL+"notes/").
			Return(false),
		transport.EXPECT().
			Put(gomock.Any(), testPodURL+"notes/", gomock.Nil(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, body []byte, header http.Header) (*pod.Response, error) {
				assert.Empty(t, body)
				assert.Equal(t, "text/turtle", header.Get("Content-Type"))
				assert.Equal(t, `<http://www.w3.org/ns/ldp#personal-data>; rel="type"`, header.Get("Link"))
				return &pod.Response{StatusCode: http.StatusCreated}, nil
			}),
	)

	client := pod.NewWithTransport(pod.MustParseRef(testPodURL), transport)
	require.NoError(t, client.EnsureContainer(context.Background(), "notes"))
}

func TestEnsureContainerReportsFailures(t *testing.T) {
	tests := []struct {
		name    string
		resp    *pod.Response
		err     error
		wantErr error
	}{
		{
			name:    "server error",
			err:     &pod.StatusError{StatusCode: http.StatusInternalServerError},
			wantErr: &pod.StatusError{},
		},
		{
			name:    "network error",
			err:     errors.New("connection refused"),
			wantErr: nil,
		},
		{
			name:    "accepted is not created",
			resp:    &pod.Response{StatusCode: http.StatusAccepted},
			wantErr: pod.ErrUnexpectedStatus,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			transport := mock_pod.NewMockTransport(ctrl)
			transport.EXPECT().Probe(gomock.Any(), gomock.Any()).Return(false)
			transport.EXPECT().
				Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(tc.resp, tc.err).
				Times(1)

			client := pod.NewWithTransport(pod.MustParseRef(testPodURL), transport)
			err := client.EnsureContainer(context.Background(), "notes")
			require.Error(t, err)

			switch want := tc.wantErr.(type) {
			case nil:
				_, ok := pod.StatusCode(err)
				assert.False(t, ok)
			case *pod.StatusError:
				code, ok := pod.StatusCode(err)
				assert.True(t, ok)
				assert.Equal(t, http.StatusInternalServerError, code)
			default:
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestEnsureContainerRejectsInvalidName(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := pod.NewWithTransport(pod.MustParseRef(testPodURL), mock_pod.NewMockTransport(ctrl))
	assert.ErrorIs(t, client.EnsureContainer(context.Background(), "a/b"), pod.ErrInvalidName)
}

func TestEnsureContainerIsIdempotent(t *testing.T) {
	store, _, client := newPodServer(t)
	ctx := context.Background()

	require.NoError(t, client.EnsureContainer(ctx, "notes"))
	assert.True(t, store.HasContainer("notes"))
	assert.Equal(t, 1, store.Requests(http.MethodPut))

	require.NoError(t, client.EnsureContainer(ctx, "notes"))
	assert.True(t, store.HasContainer("notes"))
	assert.Equal(t, 1, store.Requests(http.MethodPut), "second call must not issue a PUT")
	assert.Equal(t, 2, store.Requests(http.MethodHead))
	assert.Equal(t, []string{"http://www.w3.org/ns/ldp#personal-data"}, store.ContainerTypes("notes"))
}

func TestEnsureContainers(t *testing.T) {
	store := newMockPod()
	client := pod.NewWithTransport(pod.MustParseRef(testPodURL), store)

	require.NoError(t, client.EnsureContainers(context.Background(), "a", "b", "c", "d", "e", "a"))
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		assert.True(t, store.HasContainer(name), name)
	}

	err := client.EnsureContainers(context.Background(), "ok", "")
	assert.ErrorIs(t, err, pod.ErrInvalidName)
}
