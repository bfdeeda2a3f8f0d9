package sqlinline

// QEnsureLatestImageTable creates the single-row latest image table.
const QEnsureLatestImageTable = `--sql 30c90819-8dc3-44ff-b902-b04806058318
create table if not exists latest_image (
  slot smallint primary key default 1 check (slot = 1),
  data bytea not null,
  mime text not null,
  provider text not null default '',
  version text not null,
  committed_at timestamptz not null default now()
);
`

const QUpsertLatestImage = `--sql 3ffbb9d6-16f0-466a-8520-7a4183cb4b6e
insert into latest_image(slot, data, mime, provider, version, committed_at)
values (1, $1::bytea, $2::text, $3::text, $4::text, $5::timestamptz)
on conflict (slot) do update
set data = excluded.data,
    mime = excluded.mime,
    provider = excluded.provider,
    version = excluded.version,
    committed_at = excluded.committed_at;
`

const QSelectLatestImage = `--sql bb86fcf0-d0e0-4daa-b2b8-ab685d13b365
select data, mime, provider, version, committed_at
from latest_image
where slot = 1
limit 1;
`

const QLatestImageExists = `--sql fb49f99c-9d29-48bd-bcac-c2237c6b92cf
select exists(select 1 from latest_image where slot = 1);
`

const QDeleteLatestImage = `--sql 23cec561-d3a0-4875-b525-fb6187dc1981
delete from latest_image where slot = 1;
`
