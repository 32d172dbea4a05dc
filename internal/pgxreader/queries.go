package pgxreader

// Fixed catalog SQL, one statement per introspection section. System
// schemas (names starting with "pg_" or equal to "information_schema") are
// excluded at query time everywhere a schema name is projected.

const schemasQuery = `
SELECT n.nspname, pg_get_userbyid(n.nspowner)
FROM pg_namespace n
WHERE n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
ORDER BY n.nspname`

const relationsQuery = `
SELECT n.nspname, c.relname,
       CASE c.relkind WHEN 'v' THEN 'view' WHEN 'm' THEN 'view' ELSE 'table' END,
       CASE WHEN c.relkind IN ('v','m') THEN pg_get_viewdef(c.oid) ELSE '' END,
       coalesce(obj_description(c.oid, 'pg_class'), ''),
       pg_get_userbyid(c.relowner)
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ('r','p','v','m')
  AND n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, c.relname`

const extensionsQuery = `
SELECT e.extname, coalesce(obj_description(e.oid, 'pg_extension'), '')
FROM pg_extension e
ORDER BY e.extname`

const functionsQuery = `
SELECT n.nspname, p.proname,
       p.proname || '(' || pg_get_function_identity_arguments(p.oid) || ')',
       coalesce(pg_get_functiondef(p.oid), ''),
       coalesce(obj_description(p.oid, 'pg_proc'), ''),
       pg_get_userbyid(p.proowner)
FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, p.proname`

const columnsQuery = `
SELECT n.nspname, c.relname, a.attname, format_type(a.atttypid, a.atttypmod),
       NOT a.attnotnull, a.attnum,
       coalesce(pg_get_expr(ad.adbin, ad.adrelid), ''),
       coalesce(col_description(c.oid, a.attnum), '')
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_attrdef ad ON ad.adrelid = c.oid AND ad.adnum = a.attnum
WHERE a.attnum > 0 AND NOT a.attisdropped
  AND c.relkind IN ('r','p','v','m')
  AND n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, c.relname, a.attnum`

const constraintsQuery = `
SELECT n.nspname, c.relname, con.conname, con.contype,
       coalesce(array(SELECT a.attname FROM pg_attribute a
                       WHERE a.attrelid = con.conrelid AND a.attnum = ANY(con.conkey)
                       ORDER BY array_position(con.conkey, a.attnum)), '{}'),
       pg_get_constraintdef(con.oid)
FROM pg_constraint con
JOIN pg_class c ON c.oid = con.conrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, c.relname, con.conname`

const indexesQuery = `
SELECT n.nspname, c.relname, ic.relname, ix.indisunique, ix.indisprimary,
       pg_get_indexdef(ix.indexrelid),
       coalesce(array(SELECT a.attname FROM pg_attribute a
                       WHERE a.attrelid = ix.indrelid AND a.attnum = ANY(ix.indkey)
                       ORDER BY array_position(ix.indkey, a.attnum)), '{}')
FROM pg_index ix
JOIN pg_class c ON c.oid = ix.indrelid
JOIN pg_class ic ON ic.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
ORDER BY n.nspname, c.relname, ic.relname`

// dependenciesQuery keeps only edges between two relation-like (pg_class)
// objects; both endpoints are resolved downstream against already-loaded
// relations, so non-relation refobjids are simply filtered by the join.
const dependenciesQuery = `
SELECT sn.nspname, sc.relname, rn.nspname, rc.relname, d.deptype
FROM pg_depend d
JOIN pg_class sc ON sc.oid = d.objid AND d.classid = 'pg_class'::regclass
JOIN pg_namespace sn ON sn.oid = sc.relnamespace
JOIN pg_class rc ON rc.oid = d.refobjid AND d.refclassid = 'pg_class'::regclass
JOIN pg_namespace rn ON rn.oid = rc.relnamespace
WHERE sc.oid <> rc.oid
  AND sn.nspname !~ '^pg_' AND sn.nspname <> 'information_schema'
  AND rn.nspname !~ '^pg_' AND rn.nspname <> 'information_schema'`

const currentUserQuery = `SELECT current_user`

// inheritedRolesQuery walks pg_auth_members recursively from the current
// role, collecting every role it directly or transitively belongs to.
const inheritedRolesQuery = `
WITH RECURSIVE memberships AS (
	SELECT r.oid AS roleid, r.rolname AS rolename
	FROM pg_roles r
	WHERE r.rolname = $1
	UNION
	SELECT parent.oid, parent.rolname
	FROM memberships m
	JOIN pg_auth_members am ON am.member = m.roleid
	JOIN pg_roles parent ON parent.oid = am.roleid
)
SELECT rolename FROM memberships`

// privilegeViolationsQuery enumerates any grant beyond SELECT/USAGE held by
// the inherited role set: database CREATE/TEMP/ownership, schema
// CREATE/ownership, table write/ownership, and function EXECUTE (unless
// allow_execute suppresses that last check at the call site).
const privilegeViolationsQuery = `
WITH roles AS (SELECT unnest($1::text[]) AS rolename)
SELECT violation FROM (
	SELECT 'database:' || d.datname || ':create' AS violation
	FROM pg_database d, roles r
	WHERE d.datname = current_database() AND has_database_privilege(r.rolename, d.datname, 'CREATE')
	UNION ALL
	SELECT 'database:' || d.datname || ':temp'
	FROM pg_database d, roles r
	WHERE d.datname = current_database() AND has_database_privilege(r.rolename, d.datname, 'TEMP')
	UNION ALL
	SELECT 'database:' || d.datname || ':owner'
	FROM pg_database d, roles r
	WHERE d.datname = current_database() AND pg_get_userbyid(d.datdba) = r.rolename
	UNION ALL
	SELECT 'schema:' || n.nspname || ':create'
	FROM pg_namespace n, roles r
	WHERE n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
	  AND has_schema_privilege(r.rolename, n.nspname, 'CREATE')
	UNION ALL
	SELECT 'schema:' || n.nspname || ':owner'
	FROM pg_namespace n, roles r
	WHERE n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
	  AND pg_get_userbyid(n.nspowner) = r.rolename
	UNION ALL
	SELECT 'table:' || n.nspname || '.' || c.relname || ':' || priv
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	CROSS JOIN unnest(ARRAY['INSERT','UPDATE','DELETE','TRUNCATE','REFERENCES','TRIGGER']) AS priv
	, roles r
	WHERE c.relkind IN ('r','p')
	  AND n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
	  AND has_table_privilege(r.rolename, c.oid, priv)
	UNION ALL
	SELECT 'table:' || n.nspname || '.' || c.relname || ':owner'
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace, roles r
	WHERE c.relkind IN ('r','p')
	  AND n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
	  AND pg_get_userbyid(c.relowner) = r.rolename
	UNION ALL
	SELECT 'function:' || n.nspname || '.' || p.proname || ':execute'
	FROM pg_proc p
	JOIN pg_namespace n ON n.oid = p.pronamespace, roles r
	WHERE NOT $2::boolean
	  AND n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
	  AND has_function_privilege(r.rolename, p.oid, 'EXECUTE')
) violations
ORDER BY violation`
